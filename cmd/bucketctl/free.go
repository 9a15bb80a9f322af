package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newFreeCmd())
}

func newFreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "free <bucket-file> <offset>...",
		Short: "Release records by offset",
		Long: `The free command releases the live records at the given offsets. Offsets
that do not hold a live record are reported as errors.

Example:
  bucketctl free /var/lib/queue/bucket_0000000001 0 128`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFree(args)
		},
	}
	return cmd
}

func runFree(args []string) error {
	offsets := make([]uint32, 0, len(args)-1)
	for _, a := range args[1:] {
		v, err := strconv.ParseUint(a, 0, 32)
		if err != nil {
			return fmt.Errorf("invalid offset %q: %w", a, err)
		}
		offsets = append(offsets, uint32(v))
	}

	b, err := openBucket(args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	for _, off := range offsets {
		h, err := handleAt(b, off)
		if err != nil {
			return err
		}
		if err := b.Free(h); err != nil {
			return fmt.Errorf("free %d: %w", off, err)
		}
		printVerbose("Released record at %d\n", off)
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"released":   len(offsets),
			"insertable": b.Available(),
		})
	}
	printInfo("Released %d record(s)\n", len(offsets))
	return nil
}
