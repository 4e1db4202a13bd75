package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/r2-go/internal/history"
	"github.com/tonimelisma/r2-go/internal/r2"
)

func newPushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push <local-dir> <bucket>[/prefix]",
		Short: "Upload a directory tree",
		Long: `Upload every file under a local directory to a bucket prefix. Object
keys are the slash-joined paths relative to the directory, under the
given prefix. Uploads run in parallel (see the concurrency config key).

With --watch, push keeps running and re-uploads files as they are
created or modified.`,
		Args: cobra.ExactArgs(2),
		RunE: runPush,
	}

	cmd.Flags().Bool("watch", false, "keep watching the directory and upload changes")

	return cmd
}

// localFile is one file discovered by scanDir.
type localFile struct {
	path string // absolute local path
	key  string // object key relative to the push prefix
	size int64
}

// keyForFile derives the object key for a local file: slash separators
// and NFC-normalized Unicode, so keys are stable across platforms whose
// filesystems report different normalization forms.
func keyForFile(prefix, rel string) string {
	key := norm.NFC.String(filepath.ToSlash(rel))
	if prefix == "" {
		return key
	}

	return strings.TrimSuffix(prefix, "/") + "/" + key
}

// scanDir walks root and returns every regular file with its derived
// object key.
func scanDir(root, prefix string) ([]localFile, error) {
	var files []localFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, localFile{
			path: path,
			key:  keyForFile(prefix, rel),
			size: fi.Size(),
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	return files, nil
}

func runPush(cmd *cobra.Command, args []string) error {
	root := args[0]

	fi, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stating %q: %w", root, err)
	}

	if !fi.IsDir() {
		return fmt.Errorf("%q is not a directory — use 'r2-go put' for single files", root)
	}

	bucket, prefix, err := splitBucketKey(args[1])
	if err != nil {
		return err
	}

	session, logger, err := buildSession()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	store, histErr := openHistory(ctx, logger)
	if histErr != nil {
		logger.Warn("history unavailable", "error", histErr.Error())
	} else if store != nil {
		defer store.Close()
	}

	files, err := scanDir(root, prefix)
	if err != nil {
		return err
	}

	logger.Debug("push", "root", root, "bucket", bucket, "prefix", prefix, "files", len(files))

	if err := uploadAll(ctx, session, store, logger, bucket, files); err != nil {
		return err
	}

	statusf("Pushed %d files to %s\n", len(files), args[1])

	watch, _ := cmd.Flags().GetBool("watch")
	if !watch {
		return nil
	}

	return watchAndPush(ctx, session, store, logger, root, bucket, prefix)
}

// uploadAll uploads the given files through a bounded errgroup. The first
// failing upload cancels the remaining ones.
func uploadAll(
	ctx context.Context, session *r2.Session, store *history.Store,
	logger *slog.Logger, bucket string, files []localFile,
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolvedCfg.Concurrency)

	for _, f := range files {
		g.Go(func() error {
			if err := session.Upload(gctx, bucket, f.key, f.path); err != nil {
				return fmt.Errorf("uploading %q: %w", f.path, err)
			}

			recordTransfer(gctx, store, logger, history.OpUpload, bucket, f.key, f.size)
			statusf("Uploaded %s (%s)\n", f.key, formatSize(f.size))

			return nil
		})
	}

	return g.Wait()
}

// watchAndPush watches the tree and re-uploads files on create/write
// events until the context is canceled. New subdirectories are added to
// the watch as they appear.
func watchAndPush(
	ctx context.Context, session *r2.Session, store *history.Store,
	logger *slog.Logger, root, bucket, prefix string,
) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch every directory in the tree; fsnotify is not recursive.
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return watcher.Add(path)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}

	statusf("Watching %s for changes (Ctrl-C to stop)\n", root)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			return fmt.Errorf("watch error: %w", watchErr)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if err := handleWatchEvent(ctx, session, store, logger, watcher, event, root, bucket, prefix); err != nil {
				return err
			}
		}
	}
}

// handleWatchEvent uploads changed files and registers new directories.
// Events for paths that vanished before we stat them are ignored — the
// file was transient.
func handleWatchEvent(
	ctx context.Context, session *r2.Session, store *history.Store,
	logger *slog.Logger, watcher *fsnotify.Watcher, event fsnotify.Event,
	root, bucket, prefix string,
) error {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return nil
	}

	fi, err := os.Stat(event.Name)
	if err != nil {
		logger.Debug("skipping vanished path", "path", event.Name)
		return nil
	}

	if fi.IsDir() {
		if event.Op.Has(fsnotify.Create) {
			if err := watcher.Add(event.Name); err != nil {
				return fmt.Errorf("watching new directory %s: %w", event.Name, err)
			}
		}

		return nil
	}

	if !fi.Mode().IsRegular() {
		return nil
	}

	rel, err := filepath.Rel(root, event.Name)
	if err != nil {
		return err
	}

	key := keyForFile(prefix, rel)

	if err := session.Upload(ctx, bucket, key, event.Name); err != nil {
		return fmt.Errorf("uploading %q: %w", event.Name, err)
	}

	recordTransfer(ctx, store, logger, history.OpUpload, bucket, key, fi.Size())
	statusf("Uploaded %s (%s)\n", key, formatSize(fi.Size()))

	return nil
}
