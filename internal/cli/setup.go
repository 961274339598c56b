package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/vocabmatch"
	"github.com/hupe1980/vocabmatch/distance"
	"github.com/hupe1980/vocabmatch/internal/compress"
	"github.com/hupe1980/vocabmatch/promcollector"
	"github.com/hupe1980/vocabmatch/resource"
	"github.com/hupe1980/vocabmatch/vocabtree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// defaultMemoryFraction is the share of available memory used when no limit is set.
const defaultMemoryFraction = 0.8

// NewLogger builds the logger selected by -log-level and -log-format.
func NewLogger(cfg *Config, w io.Writer) (*vocabmatch.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, usagef("log-level: %v", err)
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "", "text":
		return vocabmatch.NewTextLogger(w, level), nil
	case "json":
		return vocabmatch.NewJSONLogger(w, level), nil
	default:
		return nil, usagef("log-format: unsupported format %q", cfg.LogFormat)
	}
}

// Env carries everything a run function needs.
type Env struct {
	Config     *Config
	Logger     *vocabmatch.Logger
	Controller *resource.Controller
	Metrics    vocabmatch.MetricsCollector
	Storage    *Storage
	Stderr     io.Writer

	metricsServer *http.Server
}

// Setup creates the logger, resource controller, storage and optional metrics
// endpoint. Close releases them.
func Setup(cfg *Config, stderr io.Writer, optFns ...StorageOption) (*Env, error) {
	logger, err := NewLogger(cfg, stderr)
	if err != nil {
		return nil, err
	}
	if _, err := compress.Parse(cfg.Compression); err != nil {
		return nil, usagef("compression: %v", err)
	}
	if _, err := distance.ParseType(cfg.Distance); err != nil {
		return nil, usagef("distance: %v", err)
	}

	memLimit := cfg.MemoryLimit
	if memLimit == 0 {
		memLimit, err = resource.DefaultMemoryLimit(defaultMemoryFraction)
		if err != nil {
			logger.Warn("cannot determine available memory, running without a memory limit", "error", err)
			memLimit = 0
		}
	}
	controller := resource.NewController(resource.Config{
		MemoryLimitBytes:   memLimit,
		MaxWorkers:         int64(cfg.Workers),
		IOLimitBytesPerSec: cfg.IOLimit,
	})

	env := &Env{
		Config:     cfg,
		Logger:     logger,
		Controller: controller,
		Metrics:    vocabmatch.NoopMetricsCollector{},
		Storage:    NewStorage(cfg, optFns...),
		Stderr:     stderr,
	}

	if cfg.MetricsAddr != "" {
		if err := env.serveMetrics(cfg.MetricsAddr); err != nil {
			return nil, err
		}
	}

	logger.Debug("configuration",
		"memory_limit", memLimit,
		"io_limit", cfg.IOLimit,
		"workers", controller.Workers(),
		"compression", cfg.Compression,
	)
	return env, nil
}

func (e *Env) serveMetrics(addr string) error {
	reg := prometheus.NewRegistry()
	collector, err := promcollector.New(reg)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	e.metricsServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	e.Metrics = collector

	go func() {
		if err := e.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Error("metrics server", "error", err)
		}
	}()
	e.Logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

// Close stops the metrics endpoint.
func (e *Env) Close() error {
	if e.metricsServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.metricsServer.Shutdown(ctx)
}

// Options returns the pipeline options for a stage labeled label.
func (e *Env) Options(label string) []vocabmatch.Option {
	opts := []vocabmatch.Option{
		vocabmatch.WithLogger(e.Logger),
		vocabmatch.WithMetricsCollector(e.Metrics),
		vocabmatch.WithResourceController(e.Controller),
	}
	if e.Config.Progress {
		opts = append(opts, vocabmatch.WithProgress(NewProgress(e.Stderr, label)))
	}
	return opts
}

// Weighting returns the database weighting selected by the configuration.
func (e *Env) Weighting() vocabmatch.Weighting {
	w := vocabmatch.DefaultWeighting()
	w.UseTFIDF = e.Config.TFIDF
	w.Normalize = e.Config.Normalize
	// Validated in Setup.
	w.Distance, _ = distance.ParseType(e.Config.Distance)
	return w
}

// NewTree returns an empty tree configured from the command line.
func (e *Env) NewTree() *vocabtree.Tree {
	ct, _ := compress.Parse(e.Config.Compression)
	return vocabtree.New(
		vocabtree.WithSeed(e.Config.Seed),
		vocabtree.WithCompression(ct),
		vocabtree.WithDistance(e.Weighting().Distance),
		vocabtree.WithLogger(e.Logger.Logger),
	)
}
