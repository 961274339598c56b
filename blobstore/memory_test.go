package blobstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	data := []byte("abc")
	require.NoError(t, store.Put(ctx, "x/1", data))
	data[0] = 'z'

	got, err := Get(ctx, store, "x/1")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	require.NoError(t, store.Put(ctx, "y", nil))
	names, err := store.List(ctx, "x/")
	require.NoError(t, err)
	assert.Equal(t, []string{"x/1"}, names)

	require.NoError(t, store.Delete(ctx, "x/1"))
	_, err = store.Open(ctx, "x/1")
	assert.ErrorIs(t, err, ErrNotFound)
}

// flakyStore fails the first n calls of Put and Open.
type flakyStore struct {
	*MemoryStore
	failures int
	calls    int
}

var errTransient = errors.New("transient")

func (f *flakyStore) Put(ctx context.Context, name string, data []byte) error {
	f.calls++
	if f.calls <= f.failures {
		return errTransient
	}
	return f.MemoryStore.Put(ctx, name, data)
}

func (f *flakyStore) Open(ctx context.Context, name string) (Blob, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errTransient
	}
	return f.MemoryStore.Open(ctx, name)
}

func fastRetry(retries uint64) RetryConfig {
	return RetryConfig{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsedTime:  time.Second,
		MaxRetries:      retries,
	}
}

func TestRetryStore_Put(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), failures: 2}
	store := NewRetryStore(inner, fastRetry(5))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "t", []byte("ok")))
	assert.Equal(t, 3, inner.calls)

	got, err := Get(ctx, inner.MemoryStore, "t")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(got))
}

func TestRetryStore_GivesUp(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), failures: 10}
	store := NewRetryStore(inner, fastRetry(2))

	err := store.Put(context.Background(), "t", []byte("ok"))
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryStore_NotFoundIsPermanent(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore()}
	store := NewRetryStore(inner, fastRetry(5))

	_, err := store.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryStore_OpenAfterFailure(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore()}
	require.NoError(t, inner.MemoryStore.Put(context.Background(), "t", []byte("tree")))
	inner.failures = 1

	store := NewRetryStore(inner, fastRetry(3))
	got, err := Get(context.Background(), store, "t")
	require.NoError(t, err)
	assert.Equal(t, "tree", string(got))
	assert.Equal(t, 2, inner.calls)
}
