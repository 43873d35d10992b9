package transfer

import (
	"context"
	"io"
)

// Object is one listed object.
type Object struct {
	Key  string
	Size int64
}

// ObjectStore is the subset of an S3-compatible API the transfer manager
// needs. HeadBucket returns ErrBucketNotFound for a missing bucket.
// ListObjects returns every object under prefix across all pages.
type ObjectStore interface {
	HeadBucket(ctx context.Context, bucket string) error
	ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error)
	PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, metadata map[string]string) error
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, map[string]string, error)
}
