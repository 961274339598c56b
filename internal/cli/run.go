package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/hupe1980/vocabmatch"
	"github.com/hupe1980/vocabmatch/descriptor"
	"github.com/hupe1980/vocabmatch/loader"
)

// loadCorpus reads the scene and every view's descriptors.
func (e *Env) loadCorpus(ctx context.Context) ([]descriptor.Batch, error) {
	opts := []loader.Option{
		loader.WithResourceController(e.Controller),
		loader.WithLogger(e.Logger.Logger),
	}
	if e.Config.Progress {
		opts = append(opts, loader.WithProgress(NewProgress(e.Stderr, "load")))
	}
	_, batches, err := loader.Load(ctx, e.Config.Scene, e.Config.FeatDir, opts...)
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func (e *Env) learnConfig() vocabmatch.LearnConfig {
	return vocabmatch.LearnConfig{
		Depth:           e.Config.Depth,
		BranchingFactor: e.Config.Branching,
		Restarts:        e.Config.Restarts,
	}
}

func (e *Env) save(ctx context.Context, engine vocabmatch.Engine, uri string) error {
	err := e.Storage.SaveTree(ctx, engine, uri)
	e.Logger.LogSave(uri, err)
	if err != nil {
		return fmt.Errorf("save %s: %w", uri, err)
	}
	return nil
}

// RunLearn learns a vocabulary tree from the corpus and saves it to -o.
func RunLearn(ctx context.Context, e *Env) error {
	batches, err := e.loadCorpus(ctx)
	if err != nil {
		return err
	}

	tree := e.NewTree()
	if err := vocabmatch.Learn(ctx, tree, batches, e.learnConfig(), e.Options("learn")...); err != nil {
		return err
	}
	e.Logger.Info("vocabulary tree learned",
		"nodes", tree.NumNodes(),
		"leaves", tree.NumLeaves(),
	)
	return e.save(ctx, tree, e.Config.Output)
}

// RunBuildDB loads the tree from -t, inserts every image and saves the database
// to -o. A tree that cannot be loaded is fatal.
func RunBuildDB(ctx context.Context, e *Env) error {
	batches, err := e.loadCorpus(ctx)
	if err != nil {
		return err
	}

	tree := e.NewTree()
	if err := e.Storage.LoadTree(ctx, tree, e.Config.Tree); err != nil {
		return err
	}
	return e.buildDatabase(ctx, tree, batches)
}

// RunLearnBuildDB loads the tree from -t, or learns it and saves it there when it
// cannot be loaded, then builds the database like RunBuildDB.
func RunLearnBuildDB(ctx context.Context, e *Env) error {
	batches, err := e.loadCorpus(ctx)
	if err != nil {
		return err
	}

	tree := e.NewTree()
	err = e.Storage.LoadTree(ctx, tree, e.Config.Tree)
	switch {
	case err == nil:
		e.Logger.Info("vocabulary tree loaded", "tree", e.Config.Tree)
	case errors.Is(err, vocabmatch.ErrTreeLoad):
		e.Logger.Info("vocabulary tree not loaded, learning it", "tree", e.Config.Tree, "reason", err)
		if err := vocabmatch.Learn(ctx, tree, batches, e.learnConfig(), e.Options("learn")...); err != nil {
			return err
		}
		if err := e.save(ctx, tree, e.Config.Tree); err != nil {
			return err
		}
	default:
		return err
	}
	return e.buildDatabase(ctx, tree, batches)
}

func (e *Env) buildDatabase(ctx context.Context, engine vocabmatch.Engine, batches []descriptor.Batch) error {
	db := vocabmatch.NewDatabase(engine, e.Options("insert")...)
	if err := db.Build(batches, e.Weighting()); err != nil {
		return err
	}
	return e.save(ctx, engine, e.Config.Output)
}

// RunMatch loads the database from -v, queries every image and writes the candidate
// pairs to -o and, with -s, the score matrix.
func RunMatch(ctx context.Context, e *Env) error {
	batches, err := e.loadCorpus(ctx)
	if err != nil {
		return err
	}

	tree := e.NewTree()
	if err := e.Storage.LoadTree(ctx, tree, e.Config.Database); err != nil {
		return err
	}
	if n := tree.NumImages(); n != len(batches) {
		e.Logger.Warn("database image count differs from scene",
			"database", n,
			"scene", len(batches),
		)
	}

	db := vocabmatch.NewDatabase(tree, e.Options("query")...)
	if err := db.PrepareForQuery(e.Weighting(), len(batches)); err != nil {
		return err
	}
	scorer, err := db.Scorer()
	if err != nil {
		return err
	}

	var matrix *vocabmatch.ScoreMatrix
	if e.Config.Matrix != "" {
		matrix = vocabmatch.NewScoreMatrix(len(batches))
	}

	sel := vocabmatch.NewSelector(scorer, float32(e.Config.Threshold), e.Options("query")...)
	pairs, err := sel.Run(batches, matrix)
	if err != nil {
		return err
	}

	if err := e.Storage.WriteFile(ctx, e.Config.Output, func(w io.Writer) error {
		return vocabmatch.WritePairs(w, pairs)
	}); err != nil {
		return fmt.Errorf("write pairs: %w", err)
	}
	e.Logger.Info("pairs written", "path", e.Config.Output, "pairs", pairs.Len())

	if matrix != nil {
		if err := e.Storage.WriteFile(ctx, e.Config.Matrix, func(w io.Writer) error {
			return vocabmatch.WriteScoreMatrix(w, matrix)
		}); err != nil {
			return fmt.Errorf("write score matrix: %w", err)
		}
		e.Logger.Info("score matrix written", "path", e.Config.Matrix, "size", matrix.Size())
	}
	return nil
}

// RunFunc is one of the Run* functions.
type RunFunc func(ctx context.Context, e *Env) error

// RunnerFor returns the run function of tool.
func RunnerFor(tool Tool) RunFunc {
	switch tool {
	case ToolLearn:
		return RunLearn
	case ToolBuildDB:
		return RunBuildDB
	case ToolLearnBuildDB:
		return RunLearnBuildDB
	default:
		return RunMatch
	}
}

// Main parses args, runs tool and returns the process exit code.
func Main(ctx context.Context, tool Tool, args []string, stderr io.Writer, optFns ...StorageOption) int {
	cfg, err := ParseArgs(tool, args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		fmt.Fprintf(stderr, "%s: %v\n", tool, err)
		return ExitUsage
	}

	env, err := Setup(cfg, stderr, optFns...)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", tool, err)
		var ue *UsageError
		if errors.As(err, &ue) {
			return ExitUsage
		}
		return ExitFailure
	}
	defer func() { _ = env.Close() }()

	if err := RunnerFor(tool)(ctx, env); err != nil {
		env.Logger.Error("failed", "tool", tool.String(), "error", err)
		fmt.Fprintf(stderr, "%s: %v\n", tool, err)
		return ExitFailure
	}
	return ExitOK
}
