package config

import "os"

// Environment variable names for overrides. Credential variables let CI
// and scripts skip the credential file entirely.
const (
	EnvConfig          = "R2_GO_CONFIG"
	EnvAccountID       = "R2_ACCOUNT_ID"
	EnvAccessKeyID     = "R2_ACCESS_KEY_ID"
	EnvSecretAccessKey = "R2_SECRET_ACCESS_KEY"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath      string
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. Callers apply the relevant fields; nothing is mutated here.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:      os.Getenv(EnvConfig),
		AccountID:       os.Getenv(EnvAccountID),
		AccessKeyID:     os.Getenv(EnvAccessKeyID),
		SecretAccessKey: os.Getenv(EnvSecretAccessKey),
	}
}

// HasCredentials reports whether the environment carries a complete
// credential triple. Partial triples are ignored rather than mixed with
// file-based credentials — a credential set is replaced wholesale or not
// at all.
func (e EnvOverrides) HasCredentials() bool {
	return e.AccountID != "" && e.AccessKeyID != "" && e.SecretAccessKey != ""
}
