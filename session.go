package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/r2-go/internal/config"
	"github.com/tonimelisma/r2-go/internal/credfile"
	"github.com/tonimelisma/r2-go/internal/history"
	"github.com/tonimelisma/r2-go/internal/r2"
)

// buildSession resolves credentials (environment first, credential file
// second), initializes an R2 session with them, and returns the session
// and logger for callers that need to log. Commands fail here with a
// login hint rather than deep inside an operation.
func buildSession() (*r2.Session, *slog.Logger, error) {
	logger := buildLogger()

	env := config.ReadEnvOverrides()
	if env.HasCredentials() {
		logger.Debug("using credentials from environment")

		session := r2.NewSession(logger)
		if err := session.Initialize(env.AccountID, env.AccessKeyID, env.SecretAccessKey); err != nil {
			return nil, nil, err
		}

		return session, logger, nil
	}

	credsPath := config.CredentialsPath()
	if credsPath == "" {
		return nil, nil, fmt.Errorf("cannot determine credentials path")
	}

	cf, err := credfile.Load(credsPath)
	if err != nil {
		return nil, nil, err
	}

	if cf == nil {
		return nil, nil, fmt.Errorf("not logged in — run 'r2-go login' first")
	}

	session := r2.NewSession(logger)
	if err := session.Initialize(cf.AccountID, cf.AccessKeyID, cf.SecretAccessKey); err != nil {
		return nil, nil, err
	}

	return session, logger, nil
}

// openHistory opens the transfer ledger if the config enables it. Returns
// (nil, nil) when history is disabled — callers treat a nil store as "do
// not record".
func openHistory(ctx context.Context, logger *slog.Logger) (*history.Store, error) {
	if resolvedCfg != nil && !resolvedCfg.History {
		return nil, nil //nolint:nilnil // disabled ledger, not an error
	}

	dbPath := config.HistoryDBPath()
	if dbPath == "" {
		return nil, fmt.Errorf("cannot determine history database path")
	}

	return history.Open(ctx, dbPath, logger)
}

// recordTransfer appends to the ledger, logging instead of failing: a
// completed transfer is never reported as failed because bookkeeping
// hiccuped.
func recordTransfer(ctx context.Context, store *history.Store, logger *slog.Logger, op, bucket, key string, size int64) {
	if store == nil {
		return
	}

	if err := store.Record(ctx, op, bucket, key, size); err != nil {
		logger.Warn("failed to record transfer",
			slog.String("operation", op),
			slog.String("bucket", bucket),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
