// Package r2 provides a session manager and storage operations for a
// Cloudflare R2 (S3-compatible) account: bucket and object listing,
// transfers, bulk deletion, text preview, and presigned URL issuance.
package r2

import "errors"

// Sentinel errors for the closed set of failure kinds this package raises
// itself. Remote service errors and local I/O errors are wrapped and
// surfaced with their own message text instead.
// Use errors.Is(err, r2.ErrNotInitialized) to check.
var (
	// ErrNotInitialized is returned by every storage operation invoked
	// before Initialize has succeeded. It is a precondition failure, not
	// a retryable condition, and is raised before any network call.
	ErrNotInitialized = errors.New("r2: session not initialized")

	// ErrPreviewTooLarge is returned by ReadTextFile when the object's
	// reported content length exceeds the preview ceiling. The body is
	// never transferred in this case.
	ErrPreviewTooLarge = errors.New("r2: object too large for text preview")

	// ErrNotText is returned by ReadTextFile when the downloaded bytes
	// are not valid UTF-8.
	ErrNotText = errors.New("r2: object is not valid text")

	// ErrPaginationStuck indicates the service returned the same
	// continuation token twice in a row. Treated as a fatal protocol
	// error to guard listing loops against spinning forever.
	ErrPaginationStuck = errors.New("r2: pagination did not advance")
)
