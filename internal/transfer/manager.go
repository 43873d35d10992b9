package transfer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"sarinfer/internal/metrics"
	"sarinfer/internal/utils"
)

// ChecksumMetadataKey is the object metadata entry holding the BLAKE2b-256
// digest of the uploaded file.
const ChecksumMetadataKey = "blake2b"

var (
	errChecksumMismatch = errors.New("checksum mismatch")
	errOutsideFolder    = errors.New("key resolves outside the target folder")
)

// Manager copies folders to and from an object store. Files are
// transferred one at a time.
type Manager struct {
	store  ObjectStore
	logger *utils.Logger
}

// NewManager creates a transfer manager on store.
func NewManager(store ObjectStore) *Manager {
	return &Manager{
		store:  store,
		logger: utils.NewLogger("transfer"),
	}
}

// JoinKey joins prefix and a slash-separated relative path. A single "/"
// is inserted unless prefix is empty or already ends with one; the prefix
// is otherwise used verbatim.
func JoinKey(prefix, rel string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix + rel
	}
	return prefix + "/" + rel
}

// Upload copies every regular file under localFolder to bucket, keyed by
// prefix plus the file's relative path. The bucket is probed first: a
// missing bucket yields ErrBucketNotFound and any other probe failure a
// BackendError. Per-file failures are recorded in the report and do not
// stop the upload.
func (m *Manager) Upload(ctx context.Context, localFolder, bucket, prefix string) (*Report, error) {
	if err := m.store.HeadBucket(ctx, bucket); err != nil {
		if errors.Is(err, ErrBucketNotFound) {
			return nil, fmt.Errorf("the bucket %s does not exist: %w", bucket, ErrBucketNotFound)
		}
		return nil, &BackendError{Op: "head bucket", Bucket: bucket, Err: err}
	}

	info, err := os.Stat(localFolder)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, localFolder)
	}

	report := &Report{Op: metrics.OpUpload, Bucket: bucket, Prefix: prefix}

	walkErr := filepath.WalkDir(localFolder, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == localFolder {
				return err
			}
			m.record(report, FileResult{Path: p, Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(localFolder, p)
		if err != nil {
			m.record(report, FileResult{Path: p, Err: err})
			return nil
		}
		key := JoinKey(prefix, filepath.ToSlash(rel))

		m.logger.Info("Uploading file", "path", p, "bucket", bucket, "key", key)
		res := m.uploadFile(ctx, p, bucket, key)
		m.record(report, res)
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("failed to walk %s: %w", localFolder, walkErr)
	}

	m.logger.Info("Upload finished",
		"bucket", bucket,
		"prefix", prefix,
		"files", report.Succeeded(),
		"failed", len(report.Failed()),
		"bytes", report.Bytes())
	return report, nil
}

func (m *Manager) uploadFile(ctx context.Context, p, bucket, key string) FileResult {
	res := FileResult{Path: p, Key: key}

	f, err := os.Open(p)
	if err != nil {
		res.Err = err
		return res
	}
	defer f.Close()

	h, _ := blake2b.New256(nil)
	size, err := io.Copy(h, f)
	if err != nil {
		res.Err = fmt.Errorf("failed to read file: %w", err)
		return res
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		res.Err = err
		return res
	}
	res.Checksum = hex.EncodeToString(h.Sum(nil))

	meta := map[string]string{ChecksumMetadataKey: res.Checksum}
	if err := m.store.PutObject(ctx, bucket, key, f, size, meta); err != nil {
		res.Err = &BackendError{Op: "put object", Bucket: bucket, Err: err}
		return res
	}
	res.Bytes = size
	return res
}

// Restore downloads every object under prefix in bucket into localFolder,
// which is created if missing. The prefix is stripped from each key to form
// the local path; existing files are overwritten. Keys under a sibling
// prefix are skipped. An empty listing is not an error. Per-file failures
// are recorded in the report.
func (m *Manager) Restore(ctx context.Context, bucket, prefix, localFolder string) (*Report, error) {
	if err := os.MkdirAll(localFolder, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", localFolder, err)
	}

	objects, err := m.store.ListObjects(ctx, bucket, prefix)
	if err != nil {
		if errors.Is(err, ErrBucketNotFound) {
			return nil, fmt.Errorf("the bucket %s does not exist: %w", bucket, ErrBucketNotFound)
		}
		return nil, &BackendError{Op: "list objects", Bucket: bucket, Err: err}
	}

	report := &Report{Op: metrics.OpRestore, Bucket: bucket, Prefix: prefix}
	if len(objects) == 0 {
		m.logger.Info("No files found", "bucket", bucket, "prefix", prefix)
		return report, nil
	}

	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		// Directory placeholders carry no content.
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}

		if !underPrefix(prefix, obj.Key) {
			m.logger.Debug("Skipping key outside prefix", "bucket", bucket, "prefix", prefix, "key", obj.Key)
			continue
		}

		dest, err := localPath(localFolder, prefix, obj.Key)
		if err != nil {
			m.record(report, FileResult{Key: obj.Key, Err: err})
			continue
		}

		m.logger.Info("Downloading file", "bucket", bucket, "key", obj.Key, "path", dest)
		m.record(report, m.downloadFile(ctx, bucket, obj.Key, dest))
	}

	m.logger.Info("Restore finished",
		"bucket", bucket,
		"prefix", prefix,
		"files", report.Succeeded(),
		"failed", len(report.Failed()),
		"bytes", report.Bytes())
	return report, nil
}

// underPrefix reports whether key continues prefix at a path boundary. A
// listing of "models/a/v1" also returns "models/a/v10/...", which belongs
// to another folder.
func underPrefix(prefix, key string) bool {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return false
	}
	return prefix == "" || strings.HasSuffix(prefix, "/") || strings.HasPrefix(rest, "/")
}

// localPath maps key to a file under folder. Keys that do not continue the
// prefix at a path boundary, or that would land outside folder, are
// refused.
func localPath(folder, prefix, key string) (string, error) {
	rel := strings.TrimPrefix(key, prefix)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		if !strings.HasPrefix(rel, "/") {
			return "", fmt.Errorf("%w: %s", errOutsideFolder, key)
		}
	}
	rel = strings.TrimLeft(rel, "/")

	clean := path.Clean(rel)
	if rel == "" || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return "", fmt.Errorf("%w: %s", errOutsideFolder, key)
	}

	dest := filepath.Join(folder, filepath.FromSlash(clean))
	within, err := filepath.Rel(folder, dest)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", errOutsideFolder, key)
	}
	return dest, nil
}

func (m *Manager) downloadFile(ctx context.Context, bucket, key, dest string) FileResult {
	res := FileResult{Path: dest, Key: key}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		res.Err = err
		return res
	}

	body, meta, err := m.store.GetObject(ctx, bucket, key)
	if err != nil {
		res.Err = &BackendError{Op: "get object", Bucket: bucket, Err: err}
		return res
	}
	defer body.Close()

	f, err := os.Create(dest)
	if err != nil {
		res.Err = err
		return res
	}

	h, _ := blake2b.New256(nil)
	n, err := io.Copy(io.MultiWriter(f, h), body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		res.Err = fmt.Errorf("failed to write file: %w", err)
		return res
	}
	res.Checksum = hex.EncodeToString(h.Sum(nil))

	if want := metadataValue(meta, ChecksumMetadataKey); want != "" && want != res.Checksum {
		res.Err = fmt.Errorf("%w: expected %s, got %s", errChecksumMismatch, want, res.Checksum)
		return res
	}
	res.Bytes = n
	return res
}

// metadataValue looks key up case-insensitively; S3-compatible services
// differ in how they case user metadata names.
func metadataValue(meta map[string]string, key string) string {
	if v, ok := meta[key]; ok {
		return v
	}
	for k, v := range meta {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (m *Manager) record(report *Report, res FileResult) {
	report.add(res)
	metrics.TransferFilesTotal.WithLabelValues(report.Op, metrics.Outcome(res.Err)).Inc()
	if res.Err != nil {
		m.logger.Error("File transfer failed", "op", report.Op, "path", res.Path, "key", res.Key, "error", res.Err)
		return
	}
	metrics.TransferBytesTotal.WithLabelValues(report.Op).Add(float64(res.Bytes))
}
