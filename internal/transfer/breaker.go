package transfer

import (
	"context"
	"errors"
	"io"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"sarinfer/internal/utils"
)

// BreakerConfig configures BreakerStore.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker.
	FailureThreshold uint32
	// Timeout is how long the breaker stays open before letting a probe
	// request through.
	Timeout time.Duration
}

// BreakerStore guards an ObjectStore with a circuit breaker. While open,
// calls fail immediately with gobreaker.ErrOpenState instead of waiting on
// an unreachable endpoint. Missing buckets and cancelled contexts do not
// count as failures.
type BreakerStore struct {
	next ObjectStore
	cb   *gobreaker.CircuitBreaker[interface{}]
}

// NewBreakerStore wraps next with a breaker named "object-store".
func NewBreakerStore(next ObjectStore, cfg BreakerConfig) *BreakerStore {
	logger := utils.NewLogger("object-store")

	settings := gobreaker.Settings{
		Name:        "object-store",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrBucketNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &BreakerStore{next: next, cb: gobreaker.NewCircuitBreaker[interface{}](settings)}
}

// State returns the breaker state for health reporting.
func (s *BreakerStore) State() string {
	return s.cb.State().String()
}

func (s *BreakerStore) HeadBucket(ctx context.Context, bucket string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.HeadBucket(ctx, bucket)
	})
	return err
}

func (s *BreakerStore) ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.ListObjects(ctx, bucket, prefix)
	})
	if err != nil {
		return nil, err
	}
	objects, _ := res.([]Object)
	return objects, nil
}

func (s *BreakerStore) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, metadata map[string]string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.PutObject(ctx, bucket, key, body, size, metadata)
	})
	return err
}

type getResult struct {
	body     io.ReadCloser
	metadata map[string]string
}

func (s *BreakerStore) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, map[string]string, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		body, metadata, err := s.next.GetObject(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		return getResult{body: body, metadata: metadata}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	r := res.(getResult)
	return r.body, r.metadata, nil
}

// Health reports an open breaker as unhealthy.
func (s *BreakerStore) Health(ctx context.Context) error {
	if s.cb.State() == gobreaker.StateOpen {
		return gobreaker.ErrOpenState
	}
	return nil
}
