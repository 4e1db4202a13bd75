package r2

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListObjects_MapsFilesAndFolders(t *testing.T) {
	modified := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	api := &fakeS3{t: t, listObjectsFn: func(input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		assert.Equal(t, "photos", aws.ToString(input.Bucket))
		assert.Equal(t, "2026/", aws.ToString(input.Prefix))
		assert.Equal(t, "/", aws.ToString(input.Delimiter))
		assert.Nil(t, input.ContinuationToken)

		return &s3.ListObjectsV2Output{
			Contents: []types.Object{
				{Key: aws.String("2026/a.jpg"), Size: aws.Int64(2048), LastModified: &modified},
				// Size can be absent in malformed listings; defaults to 0.
				{Key: aws.String("2026/b.jpg"), LastModified: &modified},
			},
			CommonPrefixes: []types.CommonPrefix{
				{Prefix: aws.String("2026/march/")},
			},
		}, nil
	}}

	s := newTestSession(t, api, nil)

	listing, err := s.ListObjects(context.Background(), "photos", "2026/", "/", "")
	require.NoError(t, err)

	require.Len(t, listing.Objects, 2)
	assert.Equal(t, "2026/a.jpg", listing.Objects[0].Key)
	assert.Equal(t, int64(2048), listing.Objects[0].Size)
	assert.Equal(t, modified, listing.Objects[0].LastModified)
	assert.Equal(t, int64(0), listing.Objects[1].Size)

	assert.Equal(t, []string{"2026/march/"}, listing.Prefixes)
	assert.False(t, listing.Truncated)
	assert.Empty(t, listing.NextToken)
}

func TestListObjects_MissingLastModifiedIsFatal(t *testing.T) {
	api := &fakeS3{t: t, listObjectsFn: func(_ *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		return &s3.ListObjectsV2Output{
			Contents: []types.Object{
				{Key: aws.String("broken.bin"), Size: aws.Int64(1)},
			},
		}, nil
	}}

	s := newTestSession(t, api, nil)

	_, err := s.ListObjects(context.Background(), "b", "", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "last-modified")
}

func TestListObjects_SinglePageWithToken(t *testing.T) {
	api := &fakeS3{t: t, listObjectsFn: func(input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		assert.Equal(t, "page-2-token", aws.ToString(input.ContinuationToken))

		return &s3.ListObjectsV2Output{
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("page-3-token"),
		}, nil
	}}

	s := newTestSession(t, api, nil)

	// One request per call — the caller drives pagination.
	listing, err := s.ListObjects(context.Background(), "b", "", "", "page-2-token")
	require.NoError(t, err)
	assert.True(t, listing.Truncated)
	assert.Equal(t, "page-3-token", listing.NextToken)
}

func TestCreateFolder_NormalizesTrailingSlash(t *testing.T) {
	for _, key := range []string{"a/b", "a/b/"} {
		t.Run(key, func(t *testing.T) {
			var gotKey string

			api := &fakeS3{t: t, putObjectFn: func(input *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
				gotKey = aws.ToString(input.Key)

				n, err := input.Body.Read(make([]byte, 1))
				assert.Equal(t, 0, n)
				assert.Error(t, err) // io.EOF: marker object is zero-length

				return &s3.PutObjectOutput{}, nil
			}}

			s := newTestSession(t, api, nil)
			require.NoError(t, s.CreateFolder(context.Background(), "b", key))
			assert.Equal(t, "a/b/", gotKey)
		})
	}
}

// batchKeys extracts the plain keys of one DeleteObjects request.
func batchKeys(input *s3.DeleteObjectsInput) []string {
	keys := make([]string, 0, len(input.Delete.Objects))
	for _, id := range input.Delete.Objects {
		keys = append(keys, aws.ToString(id.Key))
	}

	return keys
}

func TestDeleteObjects_ChunksAtServiceLimit(t *testing.T) {
	keys := make([]string, 2500)
	for i := range keys {
		keys[i] = fmt.Sprintf("obj-%04d", i)
	}

	var batches [][]string

	api := &fakeS3{t: t, deleteObjectsFn: func(input *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
		batches = append(batches, batchKeys(input))
		return &s3.DeleteObjectsOutput{}, nil
	}}

	s := newTestSession(t, api, nil)

	result, err := s.DeleteObjects(context.Background(), "b", keys)
	require.NoError(t, err)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 1000)
	assert.Len(t, batches[1], 1000)
	assert.Len(t, batches[2], 500)

	// Union of all batches equals the input, each key exactly once.
	var all []string
	for _, b := range batches {
		all = append(all, b...)
	}

	assert.Equal(t, keys, all)
	assert.Equal(t, keys, result.Deleted)
	assert.Empty(t, result.Remaining)
}

func TestDeleteObjects_SingleSmallBatch(t *testing.T) {
	var calls int

	api := &fakeS3{t: t, deleteObjectsFn: func(input *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
		calls++

		assert.Equal(t, []string{"x", "y"}, batchKeys(input))

		return &s3.DeleteObjectsOutput{}, nil
	}}

	s := newTestSession(t, api, nil)

	result, err := s.DeleteObjects(context.Background(), "b", []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"x", "y"}, result.Deleted)
}

func TestDeleteObjects_PartialFailureKeepsEarlierBatches(t *testing.T) {
	keys := make([]string, 2500)
	for i := range keys {
		keys[i] = fmt.Sprintf("obj-%04d", i)
	}

	var calls int

	api := &fakeS3{t: t, deleteObjectsFn: func(_ *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("AccessDenied: not allowed")
		}

		return &s3.DeleteObjectsOutput{}, nil
	}}

	s := newTestSession(t, api, nil)

	result, err := s.DeleteObjects(context.Background(), "b", keys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")

	// First batch succeeded and is not rolled back; the failing batch and
	// everything after it remain unattempted.
	assert.Equal(t, 2, calls)
	assert.Equal(t, keys[:1000], result.Deleted)
	assert.Equal(t, keys[1000:], result.Remaining)
}

func TestDeleteObjects_PerKeyRejection(t *testing.T) {
	api := &fakeS3{t: t, deleteObjectsFn: func(_ *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
		return &s3.DeleteObjectsOutput{
			Deleted: []types.DeletedObject{{Key: aws.String("ok-key")}},
			Errors: []types.Error{
				{Key: aws.String("locked-key"), Message: aws.String("object locked")},
			},
		}, nil
	}}

	s := newTestSession(t, api, nil)

	result, err := s.DeleteObjects(context.Background(), "b", []string{"ok-key", "locked-key"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked-key")
	assert.Equal(t, []string{"ok-key"}, result.Deleted)
	assert.Equal(t, []string{"locked-key"}, result.Remaining)
}

func TestDeletePrefix_EmptyPrefixIsNoOp(t *testing.T) {
	// deleteObjectsFn stays nil: any delete request fails the test.
	api := &fakeS3{t: t, listObjectsFn: func(input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		assert.Equal(t, "stale/", aws.ToString(input.Prefix))
		return &s3.ListObjectsV2Output{}, nil
	}}

	s := newTestSession(t, api, nil)

	result, err := s.DeletePrefix(context.Background(), "b", "stale/")
	require.NoError(t, err)
	assert.Empty(t, result.Deleted)
	assert.Empty(t, result.Remaining)
}

func TestDeletePrefix_PaginatesThenBatchDeletes(t *testing.T) {
	now := time.Now()

	// 2500 objects across three listing pages.
	page := func(start, count int, nextToken string) *s3.ListObjectsV2Output {
		out := &s3.ListObjectsV2Output{}
		for i := start; i < start+count; i++ {
			out.Contents = append(out.Contents, types.Object{
				Key:          aws.String(fmt.Sprintf("stale/obj-%04d", i)),
				Size:         aws.Int64(1),
				LastModified: &now,
			})
		}

		if nextToken != "" {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = aws.String(nextToken)
		}

		return out
	}

	var listCalls int

	var batches [][]string

	api := &fakeS3{
		t: t,
		listObjectsFn: func(input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
			listCalls++

			switch aws.ToString(input.ContinuationToken) {
			case "":
				return page(0, 1000, "t1"), nil
			case "t1":
				return page(1000, 1000, "t2"), nil
			case "t2":
				return page(2000, 500, ""), nil
			default:
				t.Fatalf("unexpected continuation token %q", aws.ToString(input.ContinuationToken))
				return nil, nil
			}
		},
		deleteObjectsFn: func(input *s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error) {
			batches = append(batches, batchKeys(input))
			return &s3.DeleteObjectsOutput{}, nil
		},
	}

	s := newTestSession(t, api, nil)

	result, err := s.DeletePrefix(context.Background(), "b", "stale/")
	require.NoError(t, err)

	assert.Equal(t, 3, listCalls)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 1000)
	assert.Len(t, batches[1], 1000)
	assert.Len(t, batches[2], 500)
	assert.Len(t, result.Deleted, 2500)
}

func TestDeletePrefix_StuckCursorIsFatal(t *testing.T) {
	api := &fakeS3{t: t, listObjectsFn: func(_ *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		return &s3.ListObjectsV2Output{
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("same-token"),
		}, nil
	}}

	s := newTestSession(t, api, nil)

	_, err := s.DeletePrefix(context.Background(), "b", "p/")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaginationStuck)
}

func TestDeletePrefix_ListFailureAbortsBeforeDeleting(t *testing.T) {
	api := &fakeS3{t: t, listObjectsFn: func(_ *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		return nil, errors.New("NoSuchBucket: the bucket does not exist")
	}}

	s := newTestSession(t, api, nil)

	_, err := s.DeletePrefix(context.Background(), "gone", "p/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoSuchBucket")
}
