package vocabmatch

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vocabmatch/descriptor"
	"github.com/hupe1980/vocabmatch/distance"
)

// fakeEngine records calls and scores queries from a fixed table. Query descriptors
// carry the query image index in every byte.
type fakeEngine struct {
	calls      []string
	table      [][]float32
	scoreCalls int
	addErr     error
	readErr    error

	buildTotal, buildDim, buildDepth, buildBranching, buildRestarts int
	buildPointers                                                   [][]byte
}

func (f *fakeEngine) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeEngine) Build(total, dim, depth, branching, restarts int, pointers [][]byte) error {
	f.record("Build")
	f.buildTotal, f.buildDim, f.buildDepth = total, dim, depth
	f.buildBranching, f.buildRestarts = branching, restarts
	f.buildPointers = pointers
	return nil
}

func (f *fakeEngine) Flatten()                        { f.record("Flatten") }
func (f *fakeEngine) SetInteriorNodeWeight(w float32) { f.record("SetInteriorNodeWeight(%g)", w) }
func (f *fakeEngine) SetConstantLeafWeights()         { f.record("SetConstantLeafWeights") }
func (f *fakeEngine) ClearDatabase()                  { f.record("ClearDatabase") }
func (f *fakeEngine) ComputeTFIDFWeights(n int)       { f.record("ComputeTFIDFWeights(%d)", n) }
func (f *fakeEngine) NormalizeDatabase(start, n int)  { f.record("NormalizeDatabase(%d,%d)", start, n) }
func (f *fakeEngine) SetDistanceType(d distance.Type) { f.record("SetDistanceType(%s)", d) }

func (f *fakeEngine) Write(string) error { return nil }

func (f *fakeEngine) Read(string) error { return f.readErr }

func (f *fakeEngine) AddImageToDatabase(id, n int, data []byte) error {
	f.record("AddImageToDatabase(%d,%d)", id, n)
	if len(data) != n*descriptor.Dim {
		return errors.New("data length mismatch")
	}
	return f.addErr
}

func (f *fakeEngine) ScoreQueryKeys(n int, normalize bool, data []byte, scores []float32) error {
	f.scoreCalls++
	q := int(data[0])
	offset := len(scores) - len(f.table[q])
	copy(scores[offset:], f.table[q])
	return nil
}

// imageBatch returns n descriptors whose bytes all equal img.
func imageBatch(img, n int) descriptor.Batch {
	data := make([]byte, n*descriptor.Dim)
	for i := range data {
		data[i] = byte(img)
	}
	return descriptor.NewBatch(data)
}

func emptyBatch() descriptor.Batch {
	return descriptor.NewBatch(nil)
}
