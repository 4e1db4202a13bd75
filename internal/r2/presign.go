package r2

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignExpiry is the fixed lifetime of presigned GET URLs. Not
// caller-configurable.
const PresignExpiry = time.Hour

// PresignGet produces a time-limited, signature-bearing URL granting read
// access to bucket/key without exposing the session's credentials. The URL
// expires after PresignExpiry.
func (s *Session) PresignGet(ctx context.Context, bucket, key string) (string, error) {
	h, err := s.handle()
	if err != nil {
		return "", err
	}

	req, err := h.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", err
	}

	s.logger.Debug("presigned URL issued",
		slog.String("bucket", bucket),
		slog.String("key", key),
		slog.Duration("expiry", PresignExpiry),
	)

	return req.URL, nil
}
