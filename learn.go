package vocabmatch

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/vocabmatch/chunkstore"
	"github.com/hupe1980/vocabmatch/descriptor"
)

// LearnConfig holds the vocabulary tree shape.
type LearnConfig struct {
	// Depth is the deepest level that is still split; 0 yields a single split of the
	// root.
	Depth int
	// BranchingFactor is the number of clusters per split.
	BranchingFactor int
	// Restarts is the number of k-means trials per split.
	Restarts int
}

// DefaultLearnConfig returns depth 0, branching factor 5000 and one restart.
func DefaultLearnConfig() LearnConfig {
	return LearnConfig{
		Depth:           0,
		BranchingFactor: 5000,
		Restarts:        1,
	}
}

// Learn copies every descriptor of the corpus into a chunked store and builds the
// engine's tree from it. A branching factor not below the descriptor count is clamped
// to count-1. The store is released before Learn returns.
func Learn(ctx context.Context, engine Engine, batches []descriptor.Batch, cfg LearnConfig, optFns ...Option) error {
	o := applyOptions(optFns)

	total, dim, err := descriptor.CountTotal(batches)
	if err != nil {
		return err
	}

	bf := cfg.BranchingFactor
	if bf >= total {
		bf = total - 1
		o.logger.Debug("branching factor clamped",
			"requested", cfg.BranchingFactor,
			"branching", bf,
			"descriptors", total,
		)
	}

	store := chunkstore.New(
		chunkstore.WithMaxChunkBytes(o.maxChunkBytes),
		chunkstore.WithResourceController(o.controller),
		chunkstore.WithLogger(o.logger.Logger),
	)
	if err := store.Initialize(total, dim); err != nil {
		return err
	}
	defer store.Release()

	for i, b := range batches {
		start := time.Now()
		if err := store.Append(i, b); err != nil {
			return err
		}
		o.metricsCollector.RecordAppend(b.Len(), time.Since(start))
		o.progress(i+1, len(batches))
	}

	o.logger.Info("learning vocabulary tree",
		"images", len(batches),
		"descriptors", total,
		"depth", cfg.Depth,
		"branching", bf,
		"restarts", cfg.Restarts,
	)

	if cb, ok := engine.(ContextBuilder); ok {
		err = cb.BuildContext(ctx, total, dim, cfg.Depth, bf, cfg.Restarts, store.Pointers())
	} else {
		if err := ctx.Err(); err != nil {
			return err
		}
		err = engine.Build(total, dim, cfg.Depth, bf, cfg.Restarts, store.Pointers())
	}
	if err != nil {
		return fmt.Errorf("build vocabulary tree: %w", err)
	}
	return nil
}
