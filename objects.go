package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/r2-go/internal/history"
	"github.com/tonimelisma/r2-go/internal/r2"
)

// splitBucketKey splits a "bucket/key/with/slashes" argument into bucket
// and key. The key may be empty ("bucket" or "bucket/").
func splitBucketKey(arg string) (string, string, error) {
	arg = strings.TrimPrefix(arg, "/")
	if arg == "" {
		return "", "", fmt.Errorf("empty remote path")
	}

	bucket, key, _ := strings.Cut(arg, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid remote path %q", arg)
	}

	return bucket, key, nil
}

func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls <bucket>[/prefix]",
		Short: "List objects and folders under a prefix",
		Long: `List one page of objects and virtual folders under a bucket prefix.

Listings are paged: when the output is truncated, re-run with --token to
fetch the next page. Bulk commands (rm -r, du) always walk all pages
themselves.`,
		Args: cobra.ExactArgs(1),
		RunE: runLs,
	}

	cmd.Flags().String("token", "", "continuation token from a previous truncated listing")

	return cmd
}

// lsJSONOutput is the JSON output schema for the ls command.
type lsJSONOutput struct {
	Files     []lsJSONFile `json:"files"`
	Folders   []string     `json:"folders"`
	Truncated bool         `json:"truncated"`
	NextToken string       `json:"next_token,omitempty"`
}

type lsJSONFile struct {
	Key        string `json:"key"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

func runLs(cmd *cobra.Command, args []string) error {
	bucket, prefix, err := splitBucketKey(args[0])
	if err != nil {
		return err
	}

	token, _ := cmd.Flags().GetString("token")

	session, logger, err := buildSession()
	if err != nil {
		return err
	}

	logger.Debug("ls", "bucket", bucket, "prefix", prefix)

	listing, err := session.ListObjects(cmd.Context(), bucket, prefix, "/", token)
	if err != nil {
		return fmt.Errorf("listing %q: %w", args[0], err)
	}

	if flagJSON {
		return printListingJSON(listing)
	}

	printListingTable(listing)

	if listing.Truncated {
		statusf("Listing truncated — continue with --token %s\n", listing.NextToken)
	}

	return nil
}

func printListingJSON(listing *r2.Listing) error {
	out := lsJSONOutput{
		Files:     make([]lsJSONFile, 0, len(listing.Objects)),
		Folders:   listing.Prefixes,
		Truncated: listing.Truncated,
		NextToken: listing.NextToken,
	}

	for _, obj := range listing.Objects {
		out.Files = append(out.Files, lsJSONFile{
			Key:        obj.Key,
			Size:       obj.Size,
			ModifiedAt: obj.LastModified.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}

func printListingTable(listing *r2.Listing) {
	headers := []string{"KEY", "SIZE", "MODIFIED"}
	rows := make([][]string, 0, len(listing.Prefixes)+len(listing.Objects))

	// Folders first, then objects, each alphabetical.
	folders := append([]string(nil), listing.Prefixes...)
	sort.Strings(folders)

	for _, p := range folders {
		rows = append(rows, []string{p, "-", "-"})
	}

	objects := append([]r2.Object(nil), listing.Objects...)
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })

	for _, obj := range objects {
		rows = append(rows, []string{obj.Key, formatSize(obj.Size), formatTime(obj.LastModified)})
	}

	printTable(os.Stdout, headers, rows)
}

// mkdirJSONOutput is the JSON output schema for the mkdir command.
type mkdirJSONOutput struct {
	Created string `json:"created"`
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <bucket>/<key>",
		Short: "Create a folder marker",
		Long: `Write a zero-length folder marker object. R2 has no real directories;
the marker makes the prefix show up as a folder in listings. A trailing
slash on the key is optional — "a/b" and "a/b/" create the same marker.`,
		Args: cobra.ExactArgs(1),
		RunE: runMkdir,
	}
}

func runMkdir(cmd *cobra.Command, args []string) error {
	bucket, key, err := splitBucketKey(args[0])
	if err != nil {
		return err
	}

	if key == "" {
		return fmt.Errorf("missing folder key in %q", args[0])
	}

	session, logger, err := buildSession()
	if err != nil {
		return err
	}

	logger.Debug("mkdir", "bucket", bucket, "key", key)

	if err := session.CreateFolder(cmd.Context(), bucket, key); err != nil {
		return fmt.Errorf("creating folder %q: %w", args[0], err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(mkdirJSONOutput{Created: args[0]})
	}

	statusf("Created %s\n", args[0])

	return nil
}

func newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <bucket>/<key> [<key>...]",
		Short: "Delete objects, or a whole prefix with --recursive",
		Long: `Delete objects from a bucket. Additional arguments are further keys in
the same bucket. With --recursive (-r), the single argument is treated as
a prefix and every object under it is deleted.

Deletion is batched at the service's 1000-key limit and is not
transactional: if a later batch fails, earlier batches stay deleted. The
command reports how far it got.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRm,
	}

	cmd.Flags().BoolP("recursive", "r", false, "delete every object under the given prefix")

	return cmd
}

// rmJSONOutput is the JSON output schema for the rm command.
type rmJSONOutput struct {
	Bucket    string   `json:"bucket"`
	Deleted   []string `json:"deleted"`
	Remaining []string `json:"remaining,omitempty"`
}

func runRm(cmd *cobra.Command, args []string) error {
	bucket, first, err := splitBucketKey(args[0])
	if err != nil {
		return err
	}

	recursive, _ := cmd.Flags().GetBool("recursive")

	session, logger, err := buildSession()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var result *r2.DeleteResult

	switch {
	case recursive:
		if len(args) > 1 {
			return fmt.Errorf("--recursive takes a single prefix argument")
		}

		logger.Debug("rm prefix", "bucket", bucket, "prefix", first)

		result, err = session.DeletePrefix(ctx, bucket, first)
	default:
		if first == "" {
			return fmt.Errorf("missing object key in %q", args[0])
		}

		keys := append([]string{first}, args[1:]...)

		logger.Debug("rm", "bucket", bucket, "keys", len(keys))

		result, err = session.DeleteObjects(ctx, bucket, keys)
	}

	// Partial success is a real outcome: record and report what was
	// deleted even when a later batch failed.
	if result != nil && len(result.Deleted) > 0 {
		store, histErr := openHistory(ctx, logger)
		if histErr != nil {
			logger.Warn("history unavailable", "error", histErr.Error())
		} else if store != nil {
			defer store.Close()

			for _, key := range result.Deleted {
				recordTransfer(ctx, store, logger, history.OpDelete, bucket, key, 0)
			}
		}
	}

	if err != nil {
		if result != nil && len(result.Deleted) > 0 {
			statusf("Deleted %d objects before failing; %d not deleted\n",
				len(result.Deleted), len(result.Remaining))
		}

		return fmt.Errorf("deleting from %q: %w", bucket, err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(rmJSONOutput{Bucket: bucket, Deleted: result.Deleted, Remaining: result.Remaining})
	}

	statusf("Deleted %d objects from %s\n", len(result.Deleted), bucket)

	return nil
}

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <bucket>/<key>",
		Short: "Print a text object to stdout",
		Long: `Print a text object to stdout. Objects larger than 5 MB are rejected
before download; objects that are not valid UTF-8 text are rejected after.`,
		Args: cobra.ExactArgs(1),
		RunE: runCat,
	}
}

func runCat(cmd *cobra.Command, args []string) error {
	bucket, key, err := splitBucketKey(args[0])
	if err != nil {
		return err
	}

	if key == "" {
		return fmt.Errorf("missing object key in %q", args[0])
	}

	session, logger, err := buildSession()
	if err != nil {
		return err
	}

	logger.Debug("cat", "bucket", bucket, "key", key)

	text, err := session.ReadTextFile(cmd.Context(), bucket, key)
	if err != nil {
		if errors.Is(err, r2.ErrPreviewTooLarge) || errors.Is(err, r2.ErrNotText) {
			return err
		}

		return fmt.Errorf("reading %q: %w", args[0], err)
	}

	fmt.Print(text)

	return nil
}

// urlJSONOutput is the JSON output schema for the url command.
type urlJSONOutput struct {
	URL       string `json:"url"`
	ExpiresIn string `json:"expires_in"`
}

func newURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url <bucket>/<key>",
		Short: "Issue a presigned download URL (valid 1 hour)",
		Args:  cobra.ExactArgs(1),
		RunE:  runURL,
	}
}

func runURL(cmd *cobra.Command, args []string) error {
	bucket, key, err := splitBucketKey(args[0])
	if err != nil {
		return err
	}

	if key == "" {
		return fmt.Errorf("missing object key in %q", args[0])
	}

	session, logger, err := buildSession()
	if err != nil {
		return err
	}

	logger.Debug("url", "bucket", bucket, "key", key)

	url, err := session.PresignGet(cmd.Context(), bucket, key)
	if err != nil {
		return fmt.Errorf("presigning %q: %w", args[0], err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(urlJSONOutput{URL: url, ExpiresIn: r2.PresignExpiry.String()})
	}

	fmt.Println(url)

	return nil
}
