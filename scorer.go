package vocabmatch

import (
	"fmt"

	"github.com/hupe1980/vocabmatch/descriptor"
)

// Scorer scores query descriptors against every image of a database. It is read-only
// with respect to the database but keeps a scratch buffer, so it is not safe for
// concurrent use.
type Scorer struct {
	engine    Engine
	numImages int
	startID   int
	normalize bool
	scratch   []float32
}

// NumImages returns the length of a score row.
func (s *Scorer) NumImages() int {
	return s.numImages
}

// Normalize reports whether the database was built normalized, which is the default
// normalize flag for queries.
func (s *Scorer) Normalize() bool {
	return s.normalize
}

// Score fills scores with one value per database image, in database order. scores is
// zeroed first. An empty batch returns false without consulting the engine.
func (s *Scorer) Score(b descriptor.Batch, normalize bool, scores []float32) (bool, error) {
	if len(scores) != s.numImages {
		return false, fmt.Errorf("%w: got %d, want %d", ErrScoreLength, len(scores), s.numImages)
	}
	clear(scores)
	if b.Empty() {
		return false, nil
	}

	n := b.Len()
	data := b.Data[:n*b.Dim]
	if s.startID == 0 {
		if err := s.engine.ScoreQueryKeys(n, normalize, data, scores); err != nil {
			return false, err
		}
		return true, nil
	}

	// The engine indexes scores by id; shift the row back to database order.
	if cap(s.scratch) < s.startID+s.numImages {
		s.scratch = make([]float32, s.startID+s.numImages)
	}
	row := s.scratch[:s.startID+s.numImages]
	if err := s.engine.ScoreQueryKeys(n, normalize, data, row); err != nil {
		return false, err
	}
	copy(scores, row[s.startID:])
	return true, nil
}
