package registry

import (
	"errors"
	"fmt"

	"sarinfer/internal/transfer"
)

var (
	// ErrPartialTransfer is matched when some files of a backup or restore
	// failed. The report lists which.
	ErrPartialTransfer = errors.New("partial transfer")

	// ErrNoBucket is returned when neither the request nor configuration
	// names a bucket.
	ErrNoBucket = errors.New("no bucket given and S3_BUCKET_NAME is not set")

	// ErrMissingReference is returned when a request names no model.
	ErrMissingReference = errors.New("a model id or model name is required")

	// ErrPathNotAllowed is returned when a local path falls outside the
	// service's local root.
	ErrPathNotAllowed = errors.New("local path is outside the models root")
)

// PartialTransferError carries the report of a transfer with failed files.
type PartialTransferError struct {
	Report *transfer.Report
}

func (e *PartialTransferError) Error() string {
	return fmt.Sprintf("%s of s3://%s/%s: %d of %d files failed",
		e.Report.Op, e.Report.Bucket, e.Report.Prefix, len(e.Report.Failed()), len(e.Report.Files))
}

func (e *PartialTransferError) Is(target error) bool {
	return target == ErrPartialTransfer
}

func (e *PartialTransferError) Unwrap() error {
	return e.Report.Err()
}
