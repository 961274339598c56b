package vocabmatch

import (
	"fmt"
	"time"

	"github.com/hupe1980/vocabmatch/descriptor"
	"github.com/hupe1980/vocabmatch/distance"
)

// Weighting configures how the database weights and normalizes image vectors.
type Weighting struct {
	// UseTFIDF recomputes leaf weights as inverse document frequency after insertion.
	UseTFIDF bool
	// Normalize rescales every stored image vector, and every query vector, to unit
	// magnitude.
	Normalize bool
	// Distance selects Dot or Min scoring. It is applied when the engine implements
	// DistanceSetter.
	Distance distance.Type
	// StartID is the database id of the first image. Image i gets id StartID+i.
	StartID int
}

// DefaultWeighting returns TF-IDF weighting with normalization and Min scoring.
func DefaultWeighting() Weighting {
	return Weighting{
		UseTFIDF:  true,
		Normalize: true,
		Distance:  distance.TypeMin,
	}
}

// Database drives an Engine through the database lifecycle. It is not safe for
// concurrent use.
type Database struct {
	engine    Engine
	state     State
	weighting Weighting
	numImages int
	opts      options
}

// NewDatabase wraps an engine that holds a built or loaded tree.
func NewDatabase(engine Engine, optFns ...Option) *Database {
	d := &Database{
		engine: engine,
		state:  StateIdle,
		opts:   applyOptions(optFns),
	}
	d.transition(StateTreeLoaded)
	return d
}

// Engine returns the wrapped engine.
func (d *Database) Engine() Engine {
	return d.engine
}

// State returns the lifecycle state.
func (d *Database) State() State {
	return d.state
}

// NumImages returns the number of images in the database.
func (d *Database) NumImages() int {
	return d.numImages
}

// Weighting returns the active weighting configuration.
func (d *Database) Weighting() Weighting {
	return d.weighting
}

func (d *Database) transition(to State) {
	d.opts.logger.LogState(d.state, to)
	d.state = to
}

// configure runs the steps shared by Build and PrepareForQuery: flatten, apply the
// distance mode and silence interior nodes.
func (d *Database) configure(w Weighting) {
	d.engine.Flatten()
	d.transition(StateFlattened)

	if ds, ok := d.engine.(DistanceSetter); ok {
		ds.SetDistanceType(w.Distance)
	}
	d.engine.SetInteriorNodeWeight(0)
}

// Build populates the database from batches in order. Any previous contents are
// discarded. Image i is inserted under id w.StartID+i; empty batches are inserted
// with no descriptors.
func (d *Database) Build(batches []descriptor.Batch, w Weighting) error {
	if !w.Distance.Valid() {
		return fmt.Errorf("invalid distance type: %v", w.Distance)
	}
	if w.StartID < 0 {
		return fmt.Errorf("invalid start id: %d", w.StartID)
	}
	_, dim, err := descriptor.CountTotal(batches)
	if err != nil {
		return err
	}

	d.weighting = w
	d.numImages = 0

	d.configure(w)
	d.engine.SetConstantLeafWeights()
	d.transition(StateWeightsConfigured)

	d.engine.ClearDatabase()
	d.transition(StateDatabaseCleared)

	total := len(batches)
	for i, b := range batches {
		start := time.Now()
		n := b.Len()
		var data []byte
		if n > 0 {
			data = b.Data[:n*dim]
		}
		err := d.engine.AddImageToDatabase(w.StartID+i, n, data)
		d.opts.metricsCollector.RecordInsert(n, time.Since(start), err)
		d.opts.logger.LogInsert(w.StartID+i, n, err)
		if err != nil {
			return fmt.Errorf("add image %d: %w", i, err)
		}
		d.numImages++
		d.opts.progress(i+1, total)
	}
	d.transition(StateDatabasePopulated)

	if w.UseTFIDF {
		d.engine.ComputeTFIDFWeights(total)
		d.transition(StateWeightsRecomputed)
	}
	if w.Normalize {
		d.engine.NormalizeDatabase(w.StartID, total)
		d.transition(StateNormalized)
	}
	d.transition(StateQueryReady)

	d.opts.logger.Info("database built",
		"images", total,
		"tfidf", w.UseTFIDF,
		"normalize", w.Normalize,
		"distance", w.Distance.String(),
	)
	return nil
}

// PrepareForQuery readies a database that was loaded already populated and weighted.
// numImages is the number of images it holds.
func (d *Database) PrepareForQuery(w Weighting, numImages int) error {
	if !w.Distance.Valid() {
		return fmt.Errorf("invalid distance type: %v", w.Distance)
	}
	if numImages < 0 {
		return fmt.Errorf("invalid image count: %d", numImages)
	}
	d.weighting = w
	d.numImages = numImages
	d.configure(w)
	d.transition(StateQueryReady)
	return nil
}

// Scorer returns a query scorer for a QueryReady database.
func (d *Database) Scorer() (*Scorer, error) {
	if d.state != StateQueryReady {
		return nil, fmt.Errorf("%w: state %s", ErrNotQueryReady, d.state)
	}
	return &Scorer{
		engine:    d.engine,
		numImages: d.numImages,
		startID:   d.weighting.StartID,
		normalize: d.weighting.Normalize,
	}, nil
}
