package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newVerifyCmd())
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <bucket-file>",
		Short: "Check that a bucket's records and free map agree",
		Long: `The verify command walks every record header, rebuilds the free map,
and checks that both describe the region consistently. Every live payload is
read and hashed. It exits with an error when a problem is found.

Example:
  bucketctl verify /var/lib/queue/bucket_0000000001`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(args)
		},
	}
	return cmd
}

func runVerify(args []string) error {
	b, err := openBucket(args[0])
	if err != nil {
		return err
	}
	defer b.Close()

	verr := b.Validate()
	recs, rerr := b.Records()

	if jsonOut {
		result := map[string]interface{}{
			"valid":   verr == nil && rerr == nil,
			"records": len(recs),
		}
		if verr != nil {
			result["error"] = verr.Error()
		} else if rerr != nil {
			result["error"] = rerr.Error()
		}
		if err := printJSON(result); err != nil {
			return err
		}
	}

	if verr != nil {
		return fmt.Errorf("verification failed: %w", verr)
	}
	if rerr != nil {
		return fmt.Errorf("reading records failed: %w", rerr)
	}

	if !jsonOut {
		printInfo("✓ %s: %d record(s), free map consistent\n", b.Path(), len(recs))
	}
	return nil
}
