package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/bucketkit/bucket"
)

var (
	createObject string
	createID     uint32
	createSize   int64
	createAlign  bool
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <dir>",
		Short: "Create an empty bucket file",
		Long: `The create command creates a new bucket file named <object>_########## in
the given directory. An existing file is opened and left as it is.

Example:
  bucketctl create /var/lib/queue --id 1 --size 67108864
  bucketctl create /tmp/mmf_test --object mmf --id 7 --size 100000 --align`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(args)
		},
	}

	cmd.Flags().StringVar(&createObject, "object", bucket.DefaultObjectName, "Object name used as the file prefix")
	cmd.Flags().Uint32Var(&createID, "id", 1, "Bucket id (positive)")
	cmd.Flags().Int64Var(&createSize, "size", bucket.DefaultBucketSize, "Region size in bytes")
	cmd.Flags().BoolVar(&createAlign, "align", false, "Round the size up to a 64 KiB allocation unit")

	return cmd
}

func runCreate(args []string) error {
	opts := bucket.DefaultOptions()
	opts.Logger = newLogger()
	if createAlign {
		opts.AllocationUnit = bucket.DefaultAllocationUnit
	}

	b, err := bucket.Open(args[0], createObject, createID, createSize, opts)
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	defer b.Close()

	if jsonOut {
		return printJSON(map[string]interface{}{
			"path": b.Path(),
			"id":   bucket.FormatID(b.ID()),
			"size": b.Size(),
		})
	}

	printInfo("Created %s (%s)\n", b.Path(), formatBytes(int64(b.Size())))
	return nil
}
