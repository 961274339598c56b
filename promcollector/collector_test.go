package promcollector

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.RecordAppend(10, time.Millisecond)
	c.RecordInsert(10, time.Millisecond, nil)
	c.RecordQuery(4, time.Millisecond, nil)
	c.RecordQuery(3, time.Millisecond, errors.New("boom"))
	c.RecordPairs(2)
	c.RecordPairs(0)

	assert.InDelta(t, 10, testutil.ToFloat64(c.descriptors.WithLabelValues("append")), 1e-9)
	assert.InDelta(t, 7, testutil.ToFloat64(c.descriptors.WithLabelValues("query")), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(c.pairs), 1e-9)
	assert.Equal(t, 4, testutil.CollectAndCount(c.opLatency))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}
