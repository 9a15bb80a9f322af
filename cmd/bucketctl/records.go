package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/bucketkit/bucket"
)

var recordsLimit int

func init() {
	rootCmd.AddCommand(newRecordsCmd())
}

func newRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records <bucket-file>",
		Short: "List live records with payload digests",
		Long: `The records command lists every live record in offset order with its
payload size and xxhash64 digest.

Example:
  bucketctl records /var/lib/queue/bucket_0000000001
  bucketctl records /var/lib/queue/bucket_0000000001 --limit 20 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecords(args)
		},
	}

	cmd.Flags().IntVarP(&recordsLimit, "limit", "n", 0, "Show at most this many records (0 = all)")

	return cmd
}

type recordOutput struct {
	Offset uint32 `json:"offset"`
	Size   uint32 `json:"size"`
	Digest string `json:"digest"`
}

func runRecords(args []string) error {
	b, err := openBucket(args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	recs, err := b.Records()
	if err != nil {
		return err
	}
	total := len(recs)
	if recordsLimit > 0 && len(recs) > recordsLimit {
		recs = recs[:recordsLimit]
	}

	out := make([]recordOutput, len(recs))
	for i, r := range recs {
		out[i] = recordOutput{Offset: r.Offset, Size: r.Size, Digest: digestString(r)}
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"id":      bucket.FormatID(b.ID()),
			"total":   total,
			"records": out,
		})
	}

	printInfo("%-12s %-10s %s\n", "OFFSET", "SIZE", "XXH64")
	for _, r := range out {
		printInfo("%-12d %-10d %s\n", r.Offset, r.Size, r.Digest)
	}
	if len(out) < total {
		printInfo("... %d more\n", total-len(out))
	}
	printVerbose("%d live record(s)\n", total)
	return nil
}

func digestString(r bucket.Record) string {
	return fmt.Sprintf("%016x", r.Digest)
}
