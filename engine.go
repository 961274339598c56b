package vocabmatch

import (
	"context"
	"fmt"

	"github.com/hupe1980/vocabmatch/distance"
)

// Engine is the vocabulary-tree capability the pipeline drives. Ids passed to
// AddImageToDatabase index the score slice of ScoreQueryKeys.
type Engine interface {
	Build(total, dim, depth, branching, restarts int, pointers [][]byte) error
	Flatten()
	SetInteriorNodeWeight(w float32)
	SetConstantLeafWeights()
	ClearDatabase()
	AddImageToDatabase(id, n int, data []byte) error
	ComputeTFIDFWeights(numImages int)
	NormalizeDatabase(startID, numImages int)
	ScoreQueryKeys(n int, normalize bool, data []byte, scores []float32) error
	Read(path string) error
	Write(path string) error
}

// DistanceSetter is implemented by engines with a configurable distance mode.
type DistanceSetter interface {
	SetDistanceType(d distance.Type)
}

// ContextBuilder is implemented by engines whose Build can be canceled.
type ContextBuilder interface {
	BuildContext(ctx context.Context, total, dim, depth, branching, restarts int, pointers [][]byte) error
}

// LoadTree reads a tree or database into engine. Any failure is reported as
// ErrTreeLoad wrapping the cause.
func LoadTree(engine Engine, path string) error {
	if err := engine.Read(path); err != nil {
		return fmt.Errorf("%w: %w", ErrTreeLoad, err)
	}
	return nil
}
