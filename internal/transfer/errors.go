package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrBucketNotFound is returned when the target bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")
	// ErrBackend matches every other object store failure.
	ErrBackend = errors.New("object store error")
	// ErrFolderNotFound is returned when the local folder to upload is missing.
	ErrFolderNotFound = errors.New("local folder not found")
)

// BackendError wraps an object store failure with the operation and bucket
// it happened on.
type BackendError struct {
	Op     string
	Bucket string
	Err    error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s s3://%s: %v", e.Op, e.Bucket, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrBackend) match any BackendError.
func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}
