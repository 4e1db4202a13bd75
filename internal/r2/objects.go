package r2

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// maxDeleteBatch is the hard per-request key limit the service imposes on
// DeleteObjects. Larger inputs are split into sequential batches.
const maxDeleteBatch = 1000

// Object is one stored object as reported by a listing call.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Listing is one page of an object listing. Objects are real stored
// entities; Prefixes are the virtual folders derived from delimiter
// grouping. When Truncated is true, passing NextToken to a subsequent
// listing request continues where this page left off.
type Listing struct {
	Objects   []Object
	Prefixes  []string
	Truncated bool
	NextToken string
}

// ListObjects returns a single page of objects and common prefixes for the
// bucket, optionally filtered by prefix and grouped by delimiter.
//
// Deliberately single-page: the caller drives pagination via NextToken so
// a UI can render incrementally. This is the opposite of the bulk
// operations (DeletePrefix, GetBucketStats), which always paginate to
// completion internally.
func (s *Session) ListObjects(ctx context.Context, bucket, prefix, delimiter, continuationToken string) (*Listing, error) {
	h, err := s.handle()
	if err != nil {
		return nil, err
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}

	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	if delimiter != "" {
		input.Delimiter = aws.String(delimiter)
	}

	if continuationToken != "" {
		input.ContinuationToken = aws.String(continuationToken)
	}

	resp, err := h.api.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, err
	}

	listing := &Listing{
		Objects:   make([]Object, 0, len(resp.Contents)),
		Prefixes:  make([]string, 0, len(resp.CommonPrefixes)),
		Truncated: aws.ToBool(resp.IsTruncated),
		NextToken: aws.ToString(resp.NextContinuationToken),
	}

	for _, obj := range resp.Contents {
		// Every real object carries a last-modified timestamp; a listing
		// entry without one is malformed, not a defaultable field.
		if obj.LastModified == nil {
			return nil, fmt.Errorf("r2: listing entry %q has no last-modified timestamp", aws.ToString(obj.Key))
		}

		listing.Objects = append(listing.Objects, Object{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: *obj.LastModified,
		})
	}

	for _, p := range resp.CommonPrefixes {
		listing.Prefixes = append(listing.Prefixes, aws.ToString(p.Prefix))
	}

	s.logger.Debug("listed objects",
		slog.String("bucket", bucket),
		slog.String("prefix", prefix),
		slog.Int("objects", len(listing.Objects)),
		slog.Int("prefixes", len(listing.Prefixes)),
		slog.Bool("truncated", listing.Truncated),
	)

	return listing, nil
}

// CreateFolder writes a zero-length marker object at key, appending the
// trailing "/" if absent. "a/b" and "a/b/" produce the identical stored
// key "a/b/". This is a naming convention, not a real directory primitive.
func (s *Session) CreateFolder(ctx context.Context, bucket, key string) error {
	h, err := s.handle()
	if err != nil {
		return err
	}

	if !strings.HasSuffix(key, "/") {
		key += "/"
	}

	_, err = h.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return err
	}

	s.logger.Debug("created folder marker",
		slog.String("bucket", bucket),
		slog.String("key", key),
	)

	return nil
}

// DeleteResult reports the outcome of a chunked deletion. Deletion is not
// transactional across batches: on failure, Deleted holds the keys removed
// by batches that completed and Remaining holds every key not confirmed
// deleted, so callers can report partial success and resume.
type DeleteResult struct {
	Deleted   []string
	Remaining []string
}

// DeleteObjects removes the given keys from the bucket, splitting the
// input into batches of at most 1000 keys (the service's hard limit) and
// issuing them sequentially. It stops at the first failing batch without
// rolling back earlier ones; the returned DeleteResult is valid in both
// the success and the error case.
func (s *Session) DeleteObjects(ctx context.Context, bucket string, keys []string) (*DeleteResult, error) {
	h, err := s.handle()
	if err != nil {
		return nil, err
	}

	return deleteInBatches(ctx, h.api, s.logger, bucket, keys)
}

// deleteInBatches is the chunked-deletion core shared by DeleteObjects and
// DeletePrefix.
func deleteInBatches(ctx context.Context, api S3API, logger *slog.Logger, bucket string, keys []string) (*DeleteResult, error) {
	result := &DeleteResult{}

	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(keys))
		batch := keys[start:end]

		ids := make([]types.ObjectIdentifier, 0, len(batch))
		for _, k := range batch {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}

		resp, err := api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids},
		})
		if err != nil {
			result.Remaining = append(result.Remaining, keys[start:]...)
			return result, err
		}

		// The service can reject individual keys inside an accepted
		// batch; surface that as a batch failure rather than silently
		// under-deleting.
		if len(resp.Errors) > 0 {
			for _, d := range resp.Deleted {
				result.Deleted = append(result.Deleted, aws.ToString(d.Key))
			}

			for _, e := range resp.Errors {
				result.Remaining = append(result.Remaining, aws.ToString(e.Key))
			}

			result.Remaining = append(result.Remaining, keys[end:]...)

			first := resp.Errors[0]

			return result, fmt.Errorf("r2: delete rejected for %q: %s",
				aws.ToString(first.Key), aws.ToString(first.Message))
		}

		result.Deleted = append(result.Deleted, batch...)

		logger.Debug("deleted batch",
			slog.String("bucket", bucket),
			slog.Int("batch_size", len(batch)),
			slog.Int("total_deleted", len(result.Deleted)),
		)
	}

	return result, nil
}

// DeletePrefix removes every object under the exact prefix. Two phases:
// the listing is paginated to completion first (terminating on the
// service's truncation flag, not on page size), then the accumulated keys
// are deleted through the same batched path as DeleteObjects. An empty
// prefix match is a successful no-op — no delete request is issued.
func (s *Session) DeletePrefix(ctx context.Context, bucket, prefix string) (*DeleteResult, error) {
	h, err := s.handle()
	if err != nil {
		return nil, err
	}

	var keys []string

	err = listToCompletion(ctx, h.api, bucket, prefix, func(obj types.Object) {
		keys = append(keys, aws.ToString(obj.Key))
	})
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		s.logger.Debug("prefix empty, nothing to delete",
			slog.String("bucket", bucket),
			slog.String("prefix", prefix),
		)

		return &DeleteResult{}, nil
	}

	s.logger.Debug("deleting prefix",
		slog.String("bucket", bucket),
		slog.String("prefix", prefix),
		slog.Int("keys", len(keys)),
	)

	return deleteInBatches(ctx, h.api, s.logger, bucket, keys)
}

// listToCompletion walks every listing page for bucket/prefix, invoking fn
// for each object. It follows the continuation cursor until the service
// reports not-truncated. A cursor that fails to advance between pages is
// treated as a protocol error so a misbehaving service cannot spin this
// loop forever.
func listToCompletion(ctx context.Context, api S3API, bucket, prefix string, fn func(types.Object)) error {
	var token *string

	for {
		input := &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			ContinuationToken: token,
		}

		if prefix != "" {
			input.Prefix = aws.String(prefix)
		}

		resp, err := api.ListObjectsV2(ctx, input)
		if err != nil {
			return err
		}

		for _, obj := range resp.Contents {
			fn(obj)
		}

		if !aws.ToBool(resp.IsTruncated) {
			return nil
		}

		next := resp.NextContinuationToken
		if next == nil || (token != nil && *next == *token) {
			return fmt.Errorf("%w (bucket %q, prefix %q)", ErrPaginationStuck, bucket, prefix)
		}

		token = next
	}
}
