// Package promcollector exports vocabmatch metrics to Prometheus.
package promcollector

import (
	"time"

	"github.com/hupe1980/vocabmatch"
	"github.com/prometheus/client_golang/prometheus"
)

var _ vocabmatch.MetricsCollector = (*Collector)(nil)

// Collector implements vocabmatch.MetricsCollector on Prometheus metrics.
type Collector struct {
	opLatency   *prometheus.HistogramVec
	descriptors *prometheus.CounterVec
	pairs       prometheus.Counter
	pairsPerQ   prometheus.Histogram
}

// New creates the metrics and registers them with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vocabmatch_operation_latency_seconds",
			Help:    "Latency of per-image pipeline operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		descriptors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vocabmatch_descriptors_total",
			Help: "Descriptors processed per operation",
		}, []string{"op"}),
		pairs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vocabmatch_pairs_total",
			Help: "Candidate pairs emitted",
		}),
		pairsPerQ: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vocabmatch_pairs_per_query",
			Help:    "Candidate pairs emitted by a single query",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}

	for _, m := range []prometheus.Collector{c.opLatency, c.descriptors, c.pairs, c.pairsPerQ} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordAppend implements vocabmatch.MetricsCollector.
func (c *Collector) RecordAppend(descriptors int, d time.Duration) {
	c.opLatency.WithLabelValues("append", "success").Observe(d.Seconds())
	c.descriptors.WithLabelValues("append").Add(float64(descriptors))
}

// RecordInsert implements vocabmatch.MetricsCollector.
func (c *Collector) RecordInsert(descriptors int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("insert", status(err)).Observe(d.Seconds())
	c.descriptors.WithLabelValues("insert").Add(float64(descriptors))
}

// RecordQuery implements vocabmatch.MetricsCollector.
func (c *Collector) RecordQuery(descriptors int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("query", status(err)).Observe(d.Seconds())
	c.descriptors.WithLabelValues("query").Add(float64(descriptors))
}

// RecordPairs implements vocabmatch.MetricsCollector.
func (c *Collector) RecordPairs(count int) {
	c.pairs.Add(float64(count))
	c.pairsPerQ.Observe(float64(count))
}
