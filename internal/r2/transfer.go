package r2

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MaxPreviewSize is the content-length ceiling for ReadTextFile. Objects
// reporting more than this are rejected before their body is transferred.
const MaxPreviewSize = 5 * 1024 * 1024

// Upload streams the local file at localPath to bucket/key. The file is
// handed to the request as a reader, not loaded into memory; the SDK
// derives the content length from the file itself.
func (s *Session) Upload(ctx context.Context, bucket, key, localPath string) error {
	h, err := s.handle()
	if err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s for upload: %w", localPath, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stating %s: %w", localPath, err)
	}

	_, err = h.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(fi.Size()),
	})
	if err != nil {
		return err
	}

	s.logger.Debug("uploaded object",
		slog.String("bucket", bucket),
		slog.String("key", key),
		slog.Int64("size", fi.Size()),
	)

	return nil
}

// Download retrieves bucket/key and writes its body to savePath, creating
// or overwriting the file. The body is streamed to disk. Returns the
// number of bytes written.
func (s *Session) Download(ctx context.Context, bucket, key, savePath string) (int64, error) {
	h, err := s.handle()
	if err != nil {
		return 0, err
	}

	resp, err := h.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	f, err := os.Create(savePath)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", savePath, err)
	}

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		f.Close()
		return n, fmt.Errorf("writing %s: %w", savePath, err)
	}

	if err := f.Close(); err != nil {
		return n, fmt.Errorf("closing %s: %w", savePath, err)
	}

	s.logger.Debug("downloaded object",
		slog.String("bucket", bucket),
		slog.String("key", key),
		slog.String("save_path", savePath),
		slog.Int64("bytes", n),
	)

	return n, nil
}

// ReadTextFile downloads bucket/key and returns its content as a string.
// Objects whose reported content length exceeds MaxPreviewSize are
// rejected with ErrPreviewTooLarge before the body is read; downloaded
// bytes that are not valid UTF-8 fail with ErrNotText. Binary content is
// never silently mangled or truncated.
func (s *Session) ReadTextFile(ctx context.Context, bucket, key string) (string, error) {
	h, err := s.handle()
	if err != nil {
		return "", err
	}

	resp, err := h.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if size := aws.ToInt64(resp.ContentLength); size > MaxPreviewSize {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", ErrPreviewTooLarge, size, MaxPreviewSize)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading object body: %w", err)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s/%s", ErrNotText, bucket, key)
	}

	return string(data), nil
}
