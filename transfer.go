package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/r2-go/internal/history"
)

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <local-path> <bucket>[/key]",
		Short: "Upload a file",
		Long: `Upload a local file to a bucket. If the remote path names only a bucket
(or ends with "/"), the local file name is appended.`,
		Args: cobra.ExactArgs(2),
		RunE: runPut,
	}
}

func runPut(cmd *cobra.Command, args []string) error {
	localPath := args[0]

	fi, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("stating local file: %w", err)
	}

	if fi.IsDir() {
		return fmt.Errorf("%q is a directory — use 'r2-go push' for directories", localPath)
	}

	bucket, key, err := splitBucketKey(args[1])
	if err != nil {
		return err
	}

	if key == "" || key[len(key)-1] == '/' {
		key += filepath.Base(localPath)
	}

	session, logger, err := buildSession()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	logger.Debug("put", "local_path", localPath, "bucket", bucket, "key", key, "size", fi.Size())

	if err := session.Upload(ctx, bucket, key, localPath); err != nil {
		return fmt.Errorf("uploading %q: %w", localPath, err)
	}

	store, histErr := openHistory(ctx, logger)
	if histErr != nil {
		logger.Warn("history unavailable", "error", histErr.Error())
	} else if store != nil {
		defer store.Close()
		recordTransfer(ctx, store, logger, history.OpUpload, bucket, key, fi.Size())
	}

	statusf("Uploaded %s/%s (%s)\n", bucket, key, formatSize(fi.Size()))

	return nil
}

// getJSONOutput is the JSON output schema for the get command.
type getJSONOutput struct {
	Saved string `json:"saved"`
	Bytes int64  `json:"bytes"`
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <bucket>/<key> [local-path]",
		Short: "Download an object",
		Long: `Download an object to a local file, overwriting any existing file at the
destination. The local path defaults to the key's base name.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runGet,
	}
}

func runGet(cmd *cobra.Command, args []string) error {
	bucket, key, err := splitBucketKey(args[0])
	if err != nil {
		return err
	}

	if key == "" {
		return fmt.Errorf("missing object key in %q", args[0])
	}

	localPath := filepath.Base(key)
	if len(args) > 1 {
		localPath = args[1]
	}

	session, logger, err := buildSession()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	logger.Debug("get", "bucket", bucket, "key", key, "local_path", localPath)

	n, err := session.Download(ctx, bucket, key, localPath)
	if err != nil {
		return fmt.Errorf("downloading %q: %w", args[0], err)
	}

	store, histErr := openHistory(ctx, logger)
	if histErr != nil {
		logger.Warn("history unavailable", "error", histErr.Error())
	} else if store != nil {
		defer store.Close()
		recordTransfer(ctx, store, logger, history.OpDownload, bucket, key, n)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(getJSONOutput{Saved: localPath, Bytes: n})
	}

	statusf("Downloaded %s (%s)\n", localPath, formatSize(n))

	return nil
}
