// Package credfile handles reading and writing the saved R2 credential
// file. The file stores the account ID and static key pair the CLI uses to
// initialize a storage session; the session layer itself never touches
// disk. This is a leaf package so config/ and the command layer can share
// it without an import cycle.
package credfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FilePerms restricts credential files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the credentials directory.
const DirPerms = 0o700

// File is the on-disk format for the credential file.
type File struct {
	AccountID       string `toml:"account_id"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// Load reads a saved credential file. Returns (nil, nil) if the file does
// not exist.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("credfile: reading %s: %w", path, err)
	}

	var cf File
	if err := toml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("credfile: decoding %s: %w", path, err)
	}

	if cf.AccountID == "" || cf.AccessKeyID == "" || cf.SecretAccessKey == "" {
		return nil, fmt.Errorf("credfile: %s is incomplete (re-run 'r2-go login')", path)
	}

	return &cf, nil
}

// Save writes the credential file atomically (write-to-temp + rename) with
// 0600 permissions. Never logs key values.
func Save(path string, cf *File) error {
	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("credfile: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("credfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: setting permissions: %w", err)
	}

	if err := toml.NewEncoder(tmp).Encode(cf); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: encoding: %w", err)
	}

	// Flush to stable storage before rename so a crash between close and
	// rename cannot leave a partial credential file at the final path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("credfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("credfile: renaming: %w", err)
	}

	success = true

	return nil
}

// Remove deletes the credential file. Missing files are not an error —
// logout of a logged-out session is a no-op.
func Remove(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("credfile: removing %s: %w", path, err)
	}

	return nil
}
