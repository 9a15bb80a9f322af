package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/bucketkit/bucket"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <bucket-file>",
		Short: "Report usage and fragmentation of a bucket",
		Long: `The info command opens a bucket file, rebuilds its free map, and
reports the region size, live records, free space, and fragmentation.

Example:
  bucketctl info /var/lib/queue/bucket_0000000001
  bucketctl info /var/lib/queue/bucket_0000000001 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args)
		},
	}
	return cmd
}

func runInfo(args []string) error {
	b, err := openBucket(args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	st := b.Stats()

	if jsonOut {
		return printJSON(map[string]interface{}{
			"path":          b.Path(),
			"id":            bucket.FormatID(st.ID),
			"size":          st.Size,
			"liveRecords":   st.LiveRecords,
			"liveBytes":     st.LiveBytes,
			"freeBytes":     st.FreeBytes,
			"freeExtents":   st.FreeExtents,
			"largestExtent": st.LargestExtent,
			"insertable":    st.Available,
			"fragmentation": st.Fragmentation(),
			"empty":         b.Empty(),
		})
	}

	printInfo("\nBucket Information:\n")
	printInfo("  File: %s\n", b.Path())
	printInfo("  ID: %s\n", bucket.FormatID(st.ID))
	printInfo("  Size: %s\n", formatBytes(int64(st.Size)))
	printInfo("\nRecords:\n")
	printInfo("  Live: %d\n", st.LiveRecords)
	printInfo("  Payload: %s\n", formatBytes(int64(st.LiveBytes)))
	printInfo("\nFree Space:\n")
	printInfo("  Free: %s in %d extent(s)\n", formatBytes(int64(st.FreeBytes)), st.FreeExtents)
	printInfo("  Largest insert: %s\n", formatBytes(int64(st.Available)))
	printInfo("  Fragmentation: %s\n", fmt.Sprintf("%.1f%%", st.Fragmentation()*100))

	return nil
}
