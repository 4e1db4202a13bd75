package r2

import (
	"context"
	"io"
	"log/slog"
	"testing"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

// fakeS3 implements S3API with per-call function fields so each test wires
// up exactly the behavior it needs. Unset calls fail loudly.
type fakeS3 struct {
	t *testing.T

	listBucketsFn   func(*s3.ListBucketsInput) (*s3.ListBucketsOutput, error)
	listObjectsFn   func(*s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error)
	putObjectFn     func(*s3.PutObjectInput) (*s3.PutObjectOutput, error)
	getObjectFn     func(*s3.GetObjectInput) (*s3.GetObjectOutput, error)
	deleteObjectsFn func(*s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error)
}

func (f *fakeS3) ListBuckets(_ context.Context, params *s3.ListBucketsInput, _ ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	if f.listBucketsFn == nil {
		f.t.Fatal("unexpected ListBuckets call")
	}

	return f.listBucketsFn(params)
}

func (f *fakeS3) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listObjectsFn == nil {
		f.t.Fatal("unexpected ListObjectsV2 call")
	}

	return f.listObjectsFn(params)
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putObjectFn == nil {
		f.t.Fatal("unexpected PutObject call")
	}

	return f.putObjectFn(params)
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getObjectFn == nil {
		f.t.Fatal("unexpected GetObject call")
	}

	return f.getObjectFn(params)
}

func (f *fakeS3) DeleteObjects(_ context.Context, params *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	if f.deleteObjectsFn == nil {
		f.t.Fatal("unexpected DeleteObjects call")
	}

	return f.deleteObjectsFn(params)
}

// fakePresigner implements PresignAPI.
type fakePresigner struct {
	presignGetFn func(*s3.GetObjectInput) (*v4.PresignedHTTPRequest, error)
}

func (f *fakePresigner) PresignGetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return f.presignGetFn(params)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestSession returns an initialized Session whose handle factory hands
// out the given fakes instead of real R2 clients.
func newTestSession(t *testing.T, api S3API, presigner PresignAPI) *Session {
	t.Helper()

	s := NewSession(discardLogger())
	s.newHandle = func(Credentials) (S3API, PresignAPI) {
		return api, presigner
	}

	require.NoError(t, s.Initialize("acct-1", "key-id", "secret"))

	return s
}
