package r2

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/logging"
)

// r2Region is the region identifier R2 expects for SigV4 signing.
const r2Region = "auto"

// Credentials is the triple that identifies an R2 account. The endpoint is
// a pure function of the account ID, so holding the triple is enough to
// rebuild the client at any time.
type Credentials struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
}

// Endpoint returns the account-scoped R2 endpoint URL.
func (c Credentials) Endpoint() string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
}

// handle bundles the storage client and its presigner so both are swapped
// as one unit on re-initialization. Operations borrow the handle under the
// session lock and release the lock before any network call.
type handle struct {
	api       S3API
	presigner PresignAPI
}

// Session is the single source of truth for "are we authenticated, and
// with what". It holds zero or one client handle; Initialize atomically
// replaces the handle and credentials together, and every operation either
// observes a handle and proceeds or fails with ErrNotInitialized. No
// operation creates a handle implicitly.
//
// Session is safe for concurrent use. The mutex guards only the handle and
// credential fields — it is never held across a network call, so in-flight
// operations do not serialize behind each other.
type Session struct {
	mu     sync.Mutex
	h      *handle
	creds  *Credentials
	logger *slog.Logger

	// newHandle builds the client pair for a credential set. Defaults to
	// the real aws-sdk-go-v2 constructor; tests override it to inject
	// fakes without a live endpoint.
	newHandle func(Credentials) (S3API, PresignAPI)
}

// NewSession creates an uninitialized Session. All storage operations fail
// with ErrNotInitialized until Initialize succeeds.
func NewSession(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		logger:    logger,
		newHandle: newR2Handle,
	}
}

// newR2Handle constructs an S3 client bound to the account's R2 endpoint
// with static SigV4 credentials, plus a presign client derived from it.
func newR2Handle(creds Credentials) (S3API, PresignAPI) {
	client := s3.New(s3.Options{
		Region:       r2Region,
		Credentials:  credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, ""),
		BaseEndpoint: aws.String(creds.Endpoint()),
		Logger:       logging.Nop{},
	})

	return client, s3.NewPresignClient(client)
}

// Initialize builds a client for the given credential triple and replaces
// any prior handle and credentials as a single atomic swap. Last call
// wins; a concurrent reader observes either the old pair or the new pair,
// never a mix. No network call is made — bad credentials surface on the
// first operation that uses them.
func (s *Session) Initialize(accountID, accessKeyID, secretAccessKey string) error {
	if accountID == "" || accessKeyID == "" || secretAccessKey == "" {
		return fmt.Errorf("r2: account ID, access key ID, and secret access key are all required")
	}

	creds := Credentials{
		AccountID:       accountID,
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
	}

	api, presigner := s.newHandle(creds)

	s.mu.Lock()
	s.h = &handle{api: api, presigner: presigner}
	s.creds = &creds
	s.mu.Unlock()

	s.logger.Debug("session initialized",
		slog.String("account_id", accountID),
		slog.String("endpoint", creds.Endpoint()),
	)

	return nil
}

// Ready reports whether the session holds an authenticated client handle.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.h != nil
}

// Credentials returns a copy of the current credential triple, or false if
// the session is not initialized.
func (s *Session) Credentials() (Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.creds == nil {
		return Credentials{}, false
	}

	return *s.creds, true
}

// handle returns the current client handle for one operation's use. The
// handle is reference-like and cheap to hand out; the lock is released
// before the caller issues any request.
func (s *Session) handle() (*handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.h == nil {
		return nil, ErrNotInitialized
	}

	return s.h, nil
}
