// Package transfertest provides an in-memory transfer.ObjectStore for tests.
package transfertest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"sarinfer/internal/transfer"
)

type object struct {
	data     []byte
	metadata map[string]string
}

// MemStore is an in-memory ObjectStore. Buckets must be created before use.
type MemStore struct {
	mu      sync.Mutex
	buckets map[string]map[string]object

	// HeadErr, ListErr, PutErr and GetErr force failures when set. PutErr and
	// GetErr receive the key so single objects can be failed.
	HeadErr error
	ListErr error
	PutErr  func(key string) error
	GetErr  func(key string) error
}

// NewMemStore creates a store holding the given empty buckets.
func NewMemStore(buckets ...string) *MemStore {
	s := &MemStore{buckets: make(map[string]map[string]object)}
	for _, b := range buckets {
		s.buckets[b] = make(map[string]object)
	}
	return s
}

func (s *MemStore) HeadBucket(ctx context.Context, bucket string) error {
	if s.HeadErr != nil {
		return s.HeadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		return fmt.Errorf("%w: %s", transfer.ErrBucketNotFound, bucket)
	}
	return nil
}

func (s *MemStore) ListObjects(ctx context.Context, bucket, prefix string) ([]transfer.Object, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		return nil, fmt.Errorf("%w: %s", transfer.ErrBucketNotFound, bucket)
	}
	var out []transfer.Object
	for k, o := range b {
		if strings.HasPrefix(k, prefix) {
			out = append(out, transfer.Object{Key: k, Size: int64(len(o.data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemStore) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, metadata map[string]string) error {
	if s.PutErr != nil {
		if err := s.PutErr(key); err != nil {
			return err
		}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch for %s: declared %d, read %d", key, size, len(data))
	}
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		return fmt.Errorf("%w: %s", transfer.ErrBucketNotFound, bucket)
	}
	b[key] = object{data: data, metadata: meta}
	return nil
}

func (s *MemStore) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, map[string]string, error) {
	if s.GetErr != nil {
		if err := s.GetErr(key); err != nil {
			return nil, nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.buckets[bucket][key]
	if !ok {
		return nil, nil, fmt.Errorf("no such key %s", key)
	}
	return io.NopCloser(bytes.NewReader(o.data)), o.metadata, nil
}

// Put stores an object directly.
func (s *MemStore) Put(bucket, key string, data []byte, metadata map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buckets[bucket] == nil {
		s.buckets[bucket] = make(map[string]object)
	}
	s.buckets[bucket][key] = object{data: data, metadata: metadata}
}

// Keys returns the sorted keys in bucket.
func (s *MemStore) Keys(bucket string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.buckets[bucket]))
	for k := range s.buckets[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Object returns the content and metadata stored at key.
func (s *MemStore) Object(bucket, key string) ([]byte, map[string]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.buckets[bucket][key]
	return o.data, o.metadata, ok
}
