package r2

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ListBuckets returns the names of all buckets on the account, in the
// order the service reports them. A single request — R2 does not paginate
// bucket listings at realistic account sizes. Buckets missing a name field
// are reported as empty strings rather than failing the call.
func (s *Session) ListBuckets(ctx context.Context) ([]string, error) {
	h, err := s.handle()
	if err != nil {
		return nil, err
	}

	resp, err := h.api.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(resp.Buckets))
	for _, b := range resp.Buckets {
		names = append(names, aws.ToString(b.Name))
	}

	s.logger.Debug("listed buckets", slog.Int("count", len(names)))

	return names, nil
}

// BucketStats holds the aggregate size and object count of a bucket.
type BucketStats struct {
	TotalSize   int64
	ObjectCount int64
}

// GetBucketStats scans every object in the bucket, following the
// continuation cursor to the last page, and accumulates total size and
// count. This is an O(objects) full-bucket walk — callers must treat it as
// a potentially long-running operation, not a cheap lookup.
func (s *Session) GetBucketStats(ctx context.Context, bucket string) (*BucketStats, error) {
	h, err := s.handle()
	if err != nil {
		return nil, err
	}

	stats := &BucketStats{}

	err = listToCompletion(ctx, h.api, bucket, "", func(obj types.Object) {
		stats.TotalSize += aws.ToInt64(obj.Size)
		stats.ObjectCount++
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("bucket stats computed",
		slog.String("bucket", bucket),
		slog.Int64("total_size", stats.TotalSize),
		slog.Int64("object_count", stats.ObjectCount),
	)

	return stats, nil
}
