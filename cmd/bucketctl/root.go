package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joshuapare/bucketkit/bucket"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "bucketctl",
	Short: "Inspect and maintain memory-mapped bucket files",
	Long: `bucketctl inspects and maintains the fixed-size, memory-mapped bucket
files used as durable message storage. It can report usage, list and verify
records, dump the free map, and insert or release records by hand.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// newLogger returns a development logger in verbose mode and a no-op logger otherwise.
func newLogger() *zap.Logger {
	if !verbose || quiet {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// splitBucketPath breaks a bucket file path into directory, object name and id.
func splitBucketPath(path string) (dir, object string, id uint32, err error) {
	dir, base := filepath.Split(path)
	i := strings.LastIndexByte(base, '_')
	if i <= 0 {
		return "", "", 0, fmt.Errorf("%s: not a bucket file name (want <object>_##########)", base)
	}
	object = base[:i]
	id, ok := bucket.ParseFileName(object, base)
	if !ok {
		return "", "", 0, fmt.Errorf("%s: not a bucket file name (want <object>_##########)", base)
	}
	if dir == "" {
		dir = "."
	}
	return dir, object, id, nil
}

// openBucket opens an existing bucket file. It never creates one.
func openBucket(path string) (*bucket.Bucket, error) {
	dir, object, id, err := splitBucketPath(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}

	printVerbose("Opening bucket: %s\n", path)
	opts := bucket.DefaultOptions()
	opts.Logger = newLogger()
	b, err := bucket.Open(dir, object, id, 1, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}
	return b, nil
}

// formatBytes renders a byte count for humans.
func formatBytes(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d bytes", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
