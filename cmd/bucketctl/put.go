package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/bucketkit/bucket"
)

var putFromFile string

func init() {
	rootCmd.AddCommand(newPutCmd())
}

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <bucket-file> [data...]",
		Short: "Insert records into a bucket",
		Long: `The put command inserts each data argument as a separate record, or the
contents of --file (use - for stdin) as one record, and prints the offset and
packed handle of every record it wrote.

Example:
  bucketctl put /var/lib/queue/bucket_0000000001 "hello" "world"
  bucketctl put /var/lib/queue/bucket_0000000001 --file message.bin`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(args)
		},
	}

	cmd.Flags().StringVarP(&putFromFile, "file", "f", "", "Read one payload from this file (- for stdin)")

	return cmd
}

type putOutput struct {
	Offset uint32 `json:"offset"`
	Size   int    `json:"size"`
	Handle string `json:"handle"`
}

func runPut(args []string) error {
	var payloads [][]byte
	for _, a := range args[1:] {
		payloads = append(payloads, []byte(a))
	}
	if putFromFile != "" {
		data, err := readPayload(putFromFile)
		if err != nil {
			return err
		}
		payloads = append(payloads, data)
	}
	if len(payloads) == 0 {
		return fmt.Errorf("nothing to insert: pass data arguments or --file")
	}

	b, err := openBucket(args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	out := make([]putOutput, 0, len(payloads))
	for i, p := range payloads {
		h, err := b.Insert(p)
		if err != nil {
			return fmt.Errorf("record %d (%d bytes): %w", i, len(p), err)
		}
		packed, _ := h.MarshalBinary()
		out = append(out, putOutput{Offset: h.Offset(), Size: h.Size(), Handle: hex.EncodeToString(packed)})
	}

	if jsonOut {
		return printJSON(out)
	}
	for _, o := range out {
		printInfo("offset=%d size=%d handle=%s\n", o.Offset, o.Size, o.Handle)
	}
	printVerbose("%s available for the next insert\n", formatBytes(int64(b.Available())))
	return nil
}

func readPayload(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return data, nil
}

// handleAt finds the live record starting at offset.
func handleAt(b *bucket.Bucket, offset uint32) (bucket.Handle, error) {
	records, err := b.Load()
	if err != nil {
		return bucket.Handle{}, err
	}
	for _, h := range records {
		if h.Offset() == offset {
			return h, nil
		}
	}
	return bucket.Handle{}, fmt.Errorf("no live record at offset %d: %w", offset, bucket.ErrInvalidAddress)
}
