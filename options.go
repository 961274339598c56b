package vocabmatch

import (
	"github.com/hupe1980/vocabmatch/chunkstore"
	"github.com/hupe1980/vocabmatch/resource"
)

// ProgressFunc is called synchronously after each processed image.
type ProgressFunc func(completed, total int)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	progress         ProgressFunc
	controller       *resource.Controller
	maxChunkBytes    int
}

// Option configures Learn, Database and Selector behavior.
type Option func(*options)

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		progress:         func(int, int) {},
		maxChunkBytes:    chunkstore.DefaultMaxChunkBytes,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithProgress registers a callback invoked with (completed, total) after each image.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		if fn == nil {
			fn = func(int, int) {}
		}
		o.progress = fn
	}
}

// WithResourceController charges the descriptor store against a memory budget.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithMaxChunkBytes overrides the descriptor store chunk cap.
func WithMaxChunkBytes(n int) Option {
	return func(o *options) {
		o.maxChunkBytes = n
	}
}
