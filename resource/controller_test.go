package resource

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.ReserveMemory(50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(context.Background(), 40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	err := c.ReserveMemory(20)
	assert.ErrorIs(t, err, ErrMemoryLimit)
	assert.Equal(t, int64(90), c.MemoryUsage())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = c.AcquireMemory(ctx, 20)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.ReserveMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())

	assert.ErrorIs(t, c.AcquireMemory(context.Background(), 500), ErrMemoryLimit)
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.ReserveMemory(1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_Nil(t *testing.T) {
	var c *Controller
	assert.NoError(t, c.ReserveMemory(10))
	assert.NoError(t, c.AcquireIO(context.Background(), 10))
	assert.Equal(t, 1, c.Workers())
	assert.Zero(t, c.MemoryUsage())
}

func TestController_Workers(t *testing.T) {
	assert.Equal(t, 1, NewController(Config{}).Workers())
	assert.Equal(t, 4, NewController(Config{MaxWorkers: 4}).Workers())
}

func TestController_IOLargerThanBurst(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	// Larger than the burst must be split rather than rejected.
	require.NoError(t, c.AcquireIO(context.Background(), 1<<20+10))
}

func TestRateLimitedReader(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	src := bytes.Repeat([]byte{7}, 4096)
	r := NewRateLimitedReader(context.Background(), bytes.NewReader(src), c)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestDefaultMemoryLimit(t *testing.T) {
	_, err := DefaultMemoryLimit(0)
	assert.Error(t, err)

	limit, err := DefaultMemoryLimit(0.5)
	if err != nil {
		t.Skipf("memory stats unavailable: %v", err)
	}
	assert.Positive(t, limit)
}
