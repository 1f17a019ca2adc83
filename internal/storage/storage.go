// Package storage wraps the S3 operations gurgler needs: tagged uploads,
// delimiter listings with transparent pagination, metadata reads, and
// batched deletes. The API interface mirrors the AWS SDK signatures so
// tests can substitute a mock client.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// maxBatchSize is the S3 ceiling for a single DeleteObjects call.
const maxBatchSize = 1000

// API is the subset of the S3 client used by this tool.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Object is one listed storage object.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store provides the object storage operations used by the publisher,
// catalog, and sweeper.
type Store struct {
	client API
}

// New creates a Store backed by the given API implementation. Tests pass
// a mock; production code usually calls NewFromDefaults.
func New(client API) *Store {
	return &Store{client: client}
}

// NewFromDefaults creates a Store using the default AWS credential chain.
func NewFromDefaults(ctx context.Context) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, newError("init", "", "", err)
	}
	return &Store{client: s3.NewFromConfig(cfg)}, nil
}

// Put uploads an object with its content type, metadata tags, and
// public-read access.
func (s *Store) Put(ctx context.Context, bucket, key string, body []byte, contentType string, metadata map[string]string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
		ACL:           types.ObjectCannedACLPublicRead,
	}
	if len(metadata) > 0 {
		input.Metadata = metadata
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return newError("put", bucket, key, err)
	}
	return nil
}

// ListPrefix lists the first-level children under prefix using "/" as
// the delimiter, so per-build asset subtrees are not descended into.
// Pagination is handled transparently until the listing is exhausted.
func (s *Store) ListPrefix(ctx context.Context, bucket, prefix string) ([]Object, error) {
	return s.list(ctx, bucket, prefix, "/")
}

// ListAllUnder lists every object under prefix, descending into the
// whole subtree. Used to enumerate a build's assets for deletion.
func (s *Store) ListAllUnder(ctx context.Context, bucket, prefix string) ([]Object, error) {
	return s.list(ctx, bucket, prefix, "")
}

func (s *Store) list(ctx context.Context, bucket, prefix, delimiter string) ([]Object, error) {
	var objects []Object
	var continuation *string

	for {
		input := &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		}
		if delimiter != "" {
			input.Delimiter = aws.String(delimiter)
		}

		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, newError("list", bucket, prefix, err)
		}

		for _, obj := range out.Contents {
			objects = append(objects, Object{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}

		if !aws.ToBool(out.IsTruncated) {
			return objects, nil
		}
		continuation = out.NextContinuationToken
	}
}

// Head returns the metadata tags of a single object.
func (s *Store) Head(ctx context.Context, bucket, key string) (map[string]string, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, newError("head", bucket, key, err)
	}
	return out.Metadata, nil
}

// DeleteBatch deletes the given keys in chunks of at most 1000, the S3
// per-request ceiling. Deleting an already-absent key is a no-op, but a
// per-key failure inside an otherwise successful response (quiet mode
// would hide these) is an error naming the first failed key.
func (s *Store) DeleteBatch(ctx context.Context, bucket string, keys []string) error {
	for start := 0; start < len(keys); start += maxBatchSize {
		end := min(start+maxBatchSize, len(keys))

		identifiers := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			identifiers = append(identifiers, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{
				Objects: identifiers,
				Quiet:   aws.Bool(false),
			},
		})
		if err != nil {
			return newError("delete", bucket, keys[start], err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return newError("delete", bucket, aws.ToString(first.Key),
				fmt.Errorf("%d of %d keys failed: %s: %s",
					len(out.Errors), end-start, aws.ToString(first.Code), aws.ToString(first.Message)))
		}
	}
	return nil
}

// DeleteAllUnder removes every object under prefix and returns how many
// keys were deleted.
func (s *Store) DeleteAllUnder(ctx context.Context, bucket, prefix string) (int, error) {
	objects, err := s.ListAllUnder(ctx, bucket, prefix)
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Key)
	}

	if err := s.DeleteBatch(ctx, bucket, keys); err != nil {
		return 0, err
	}
	return len(keys), nil
}
