package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transfers",
		Long: `List the most recent transfers (uploads, downloads, deletions) recorded
in the local history database, newest first.`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().Int("limit", 20, "maximum number of entries to show")

	return cmd
}

// historyJSONOutput is the JSON output schema for one history entry.
type historyJSONOutput struct {
	Operation  string `json:"operation"`
	Bucket     string `json:"bucket"`
	Key        string `json:"key"`
	Size       int64  `json:"size"`
	OccurredAt string `json:"occurred_at"`
}

func runHistory(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be positive")
	}

	logger := buildLogger()

	ctx := cmd.Context()

	store, err := openHistory(ctx, logger)
	if err != nil {
		return err
	}

	if store == nil {
		return fmt.Errorf("history is disabled in configuration")
	}
	defer store.Close()

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}

	if flagJSON {
		out := make([]historyJSONOutput, 0, len(entries))
		for _, e := range entries {
			out = append(out, historyJSONOutput{
				Operation:  e.Operation,
				Bucket:     e.Bucket,
				Key:        e.Key,
				Size:       e.Size,
				OccurredAt: e.OccurredAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	if len(entries) == 0 {
		statusf("No transfers recorded\n")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			formatTime(e.OccurredAt.Local()),
			e.Operation,
			fmt.Sprintf("%s/%s", e.Bucket, e.Key),
			formatSize(e.Size),
		})
	}

	printTable(os.Stdout, []string{"WHEN", "OP", "OBJECT", "SIZE"}, rows)

	return nil
}
