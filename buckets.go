package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newBucketsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buckets",
		Short: "List buckets on the account",
		Args:  cobra.NoArgs,
		RunE:  runBuckets,
	}
}

func runBuckets(cmd *cobra.Command, _ []string) error {
	session, logger, err := buildSession()
	if err != nil {
		return err
	}

	logger.Debug("buckets")

	names, err := session.ListBuckets(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing buckets: %w", err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(names)
	}

	for _, name := range names {
		fmt.Println(name)
	}

	return nil
}

// duStatsConcurrency bounds parallel full-bucket scans in du --all. Scans
// are listing-heavy; a few in flight is plenty.
const duStatsConcurrency = 4

func newDuCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "du [bucket]",
		Short: "Show bucket size and object count",
		Long: `Compute the total size and object count of a bucket by walking its full
listing. This scans every object — on large buckets it takes a while.
With --all, every bucket on the account is scanned concurrently.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDu,
	}

	cmd.Flags().Bool("all", false, "scan every bucket on the account")

	return cmd
}

// duJSONOutput is the JSON output schema for one bucket in du output.
type duJSONOutput struct {
	Bucket  string `json:"bucket"`
	Size    int64  `json:"size"`
	Objects int64  `json:"objects"`
}

func runDu(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")

	if all == (len(args) == 1) {
		return fmt.Errorf("specify either a bucket or --all")
	}

	session, logger, err := buildSession()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	buckets := args
	if all {
		buckets, err = session.ListBuckets(ctx)
		if err != nil {
			return fmt.Errorf("listing buckets: %w", err)
		}
	}

	logger.Debug("du", "buckets", len(buckets))

	results := make([]duJSONOutput, len(buckets))

	// Full-bucket scans are independent; run a bounded number in
	// parallel. The session lock is only held to borrow the handle, so
	// scans do not serialize each other.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(duStatsConcurrency)

	var mu sync.Mutex

	for i, bucket := range buckets {
		g.Go(func() error {
			stats, statErr := session.GetBucketStats(gctx, bucket)
			if statErr != nil {
				return fmt.Errorf("scanning %q: %w", bucket, statErr)
			}

			mu.Lock()
			results[i] = duJSONOutput{Bucket: bucket, Size: stats.TotalSize, Objects: stats.ObjectCount}
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(results)
	}

	printDuTable(results)

	return nil
}

func printDuTable(results []duJSONOutput) {
	headers := []string{"BUCKET", "SIZE", "OBJECTS"}
	rows := make([][]string, 0, len(results))

	var totalSize, totalObjects int64

	for _, r := range results {
		rows = append(rows, []string{r.Bucket, formatSize(r.Size), fmt.Sprintf("%d", r.Objects)})
		totalSize += r.Size
		totalObjects += r.Objects
	}

	if len(results) > 1 {
		rows = append(rows, []string{"TOTAL", formatSize(totalSize), fmt.Sprintf("%d", totalObjects)})
	}

	printTable(os.Stdout, headers, rows)
}
