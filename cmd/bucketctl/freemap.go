package main

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newFreeMapCmd())
}

func newFreeMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "freemap <bucket-file>",
		Short: "Dump the free extents of a bucket as JSON",
		Long: `The freemap command rebuilds the free map of a bucket and writes it as
JSON, listing the free extents both by offset and in allocation order.

Example:
  bucketctl freemap /var/lib/queue/bucket_0000000001`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFreeMap(args)
		},
	}
	return cmd
}

func runFreeMap(args []string) error {
	b, err := openBucket(args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.WriteFreeMap(os.Stdout); err != nil {
		return err
	}
	printInfo("\n")
	return nil
}
