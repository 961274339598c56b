package blobstore

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig controls the exponential backoff of a RetryStore.
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	MaxRetries      uint64
}

// DefaultRetryConfig returns settings suited to object storage.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsedTime:  time.Minute,
		MaxRetries:      5,
	}
}

// RetryStore retries transient failures of an underlying Store.
// ErrNotFound and context errors are never retried.
type RetryStore struct {
	Store
	cfg RetryConfig
}

// NewRetryStore wraps s.
func NewRetryStore(s Store, cfg RetryConfig) *RetryStore {
	return &RetryStore{Store: s, cfg: cfg}
}

func (r *RetryStore) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval
	b.MaxElapsedTime = r.cfg.MaxElapsedTime

	var p backoff.BackOff = b
	if r.cfg.MaxRetries > 0 {
		p = backoff.WithMaxRetries(p, r.cfg.MaxRetries)
	}
	return backoff.WithContext(p, ctx)
}

func permanent(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return backoff.Permanent(err)
	}
	return err
}

// Open retries opening name.
func (r *RetryStore) Open(ctx context.Context, name string) (Blob, error) {
	return backoff.RetryWithData[Blob](func() (Blob, error) {
		b, err := r.Store.Open(ctx, name)
		return b, permanent(err)
	}, r.policy(ctx))
}

// Put retries the upload of name.
func (r *RetryStore) Put(ctx context.Context, name string, data []byte) error {
	return backoff.Retry(func() error {
		return permanent(r.Store.Put(ctx, name, data))
	}, r.policy(ctx))
}
