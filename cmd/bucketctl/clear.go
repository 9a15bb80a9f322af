package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearForce bool

func init() {
	rootCmd.AddCommand(newClearCmd())
}

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear <bucket-file>",
		Short: "Erase every record in a bucket",
		Long: `The clear command zeroes the whole region of a bucket file. All records
are lost. --force is required.

Example:
  bucketctl clear /var/lib/queue/bucket_0000000001 --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(args)
		},
	}

	cmd.Flags().BoolVar(&clearForce, "force", false, "Confirm that all records may be erased")

	return cmd
}

func runClear(args []string) error {
	if !clearForce {
		return fmt.Errorf("refusing to clear %s without --force", args[0])
	}

	b, err := openBucket(args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	live := b.Stats().LiveRecords
	if err := b.Clear(); err != nil {
		return err
	}
	printInfo("Cleared %s (%d record(s) erased)\n", b.Path(), live)
	return nil
}
