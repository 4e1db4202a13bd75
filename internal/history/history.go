// Package history records completed transfers (uploads, downloads,
// deletions) in a local SQLite database so `r2-go history` can show what
// the tool has done to a bucket and when.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	// Pure-Go SQLite driver (no CGO), registers as "sqlite".
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Operation names recorded in the ledger.
const (
	OpUpload   = "upload"
	OpDownload = "download"
	OpDelete   = "delete"
)

// Entry is one recorded transfer.
type Entry struct {
	ID         string
	Operation  string
	Bucket     string
	Key        string
	Size       int64
	OccurredAt time.Time
}

// SQL statements for ledger operations.
const (
	sqlInsertEntry = `INSERT INTO transfers (id, operation, bucket, key, size, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	sqlRecentEntries = `SELECT id, operation, bucket, key, size, occurred_at
		FROM transfers ORDER BY occurred_at DESC, rowid DESC LIMIT ?`
)

// Store is the transfer ledger. It is the sole writer to the history
// database.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// Open opens (creating if needed) the history database at dbPath and
// applies pending schema migrations.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("history: creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: enabling WAL: %w", err)
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

// runMigrations applies all pending schema migrations using the goose v3
// Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	// Strip the "migrations/" prefix so goose sees files at the FS root.
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("history: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("history: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("history: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Debug("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one transfer to the ledger. Ledger failures should not
// abort a transfer that already succeeded; callers log and continue.
func (s *Store) Record(ctx context.Context, operation, bucket, key string, size int64) error {
	_, err := s.db.ExecContext(ctx, sqlInsertEntry,
		uuid.NewString(), operation, bucket, key, size,
		s.nowFunc().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("history: recording %s %s/%s: %w", operation, bucket, key, err)
	}

	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, sqlRecentEntries, limit)
	if err != nil {
		return nil, fmt.Errorf("history: querying entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e  Entry
			ts string
		)

		if err := rows.Scan(&e.ID, &e.Operation, &e.Bucket, &e.Key, &e.Size, &ts); err != nil {
			return nil, fmt.Errorf("history: scanning entry: %w", err)
		}

		e.OccurredAt, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("history: parsing timestamp %q: %w", ts, err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating entries: %w", err)
	}

	return entries, nil
}
