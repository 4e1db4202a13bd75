package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/r2-go/internal/config"
	"github.com/tonimelisma/r2-go/internal/credfile"
	"github.com/tonimelisma/r2-go/internal/r2"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save R2 credentials and verify them",
		Long: `Save an R2 credential set (account ID plus an API token's access key
and secret key) to the credential file, verifying it against the account
with a bucket listing before persisting.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}

	cmd.Flags().String("account-id", "", "Cloudflare account ID")
	cmd.Flags().String("access-key-id", "", "R2 access key ID")
	cmd.Flags().String("secret-access-key", "", "R2 secret access key")

	_ = cmd.MarkFlagRequired("account-id")
	_ = cmd.MarkFlagRequired("access-key-id")
	_ = cmd.MarkFlagRequired("secret-access-key")

	return cmd
}

func runLogin(cmd *cobra.Command, _ []string) error {
	accountID, _ := cmd.Flags().GetString("account-id")
	accessKeyID, _ := cmd.Flags().GetString("access-key-id")
	secretAccessKey, _ := cmd.Flags().GetString("secret-access-key")

	logger := buildLogger()

	session := r2.NewSession(logger)
	if err := session.Initialize(accountID, accessKeyID, secretAccessKey); err != nil {
		return err
	}

	// Verify before persisting — a typo'd key should fail here, not on
	// the first real operation.
	buckets, err := session.ListBuckets(cmd.Context())
	if err != nil {
		return fmt.Errorf("verifying credentials: %w", err)
	}

	credsPath := config.CredentialsPath()
	if credsPath == "" {
		return fmt.Errorf("cannot determine credentials path")
	}

	err = credfile.Save(credsPath, &credfile.File{
		AccountID:       accountID,
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
	})
	if err != nil {
		return err
	}

	statusf("Logged in to account %s (%d buckets visible)\n", accountID, len(buckets))

	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove saved R2 credentials",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			credsPath := config.CredentialsPath()
			if credsPath == "" {
				return fmt.Errorf("cannot determine credentials path")
			}

			if err := credfile.Remove(credsPath); err != nil {
				return err
			}

			statusf("Logged out\n")

			return nil
		},
	}
}

// whoamiJSONOutput is the JSON output schema for the whoami command.
type whoamiJSONOutput struct {
	AccountID   string `json:"account_id"`
	AccessKeyID string `json:"access_key_id"`
	Endpoint    string `json:"endpoint"`
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the active account",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			session, _, err := buildSession()
			if err != nil {
				return err
			}

			creds, ok := session.Credentials()
			if !ok {
				return fmt.Errorf("not logged in — run 'r2-go login' first")
			}

			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")

				return enc.Encode(whoamiJSONOutput{
					AccountID:   creds.AccountID,
					AccessKeyID: maskKey(creds.AccessKeyID),
					Endpoint:    creds.Endpoint(),
				})
			}

			fmt.Printf("Account:    %s\n", creds.AccountID)
			fmt.Printf("Access key: %s\n", maskKey(creds.AccessKeyID))
			fmt.Printf("Endpoint:   %s\n", creds.Endpoint())

			return nil
		},
	}
}

// maskKey hides all but the first four characters of a key ID. Secret
// values are never printed at all.
func maskKey(key string) string {
	const visible = 4

	if len(key) <= visible {
		return strings.Repeat("*", len(key))
	}

	return key[:visible] + strings.Repeat("*", len(key)-visible)
}
