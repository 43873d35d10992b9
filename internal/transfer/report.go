package transfer

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// FileResult is the outcome of transferring one file.
type FileResult struct {
	Path     string `json:"path"`
	Key      string `json:"key"`
	Bytes    int64  `json:"bytes"`
	Checksum string `json:"checksum,omitempty"`
	Err      error  `json:"-"`
}

// MarshalJSON renders Err as an "error" string.
func (f FileResult) MarshalJSON() ([]byte, error) {
	type plain FileResult
	out := struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain: plain(f)}
	if f.Err != nil {
		out.Error = f.Err.Error()
	}
	return json.Marshal(out)
}

// Report collects per-file results of an Upload or Restore. Transfers are
// best effort: a failed file does not stop the rest.
type Report struct {
	Op     string       `json:"op"`
	Bucket string       `json:"bucket"`
	Prefix string       `json:"prefix"`
	Files  []FileResult `json:"files"`
}

func (r *Report) add(res FileResult) {
	r.Files = append(r.Files, res)
}

// Succeeded returns the number of files transferred.
func (r *Report) Succeeded() int {
	n := 0
	for _, f := range r.Files {
		if f.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the results that carry an error.
func (r *Report) Failed() []FileResult {
	var failed []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// OK reports whether every file transferred.
func (r *Report) OK() bool {
	return len(r.Failed()) == 0
}

// Bytes returns the total size of the files transferred.
func (r *Report) Bytes() int64 {
	var total int64
	for _, f := range r.Files {
		if f.Err == nil {
			total += f.Bytes
		}
	}
	return total
}

// Err joins the per-file errors, or returns nil when all files succeeded.
func (r *Report) Err() error {
	var errs []error
	for _, f := range r.Failed() {
		name := f.Key
		if name == "" {
			name = f.Path
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, f.Err))
	}
	return errors.Join(errs...)
}
