package vocabmatch

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vocabmatch/descriptor"
)

// Selector turns score rows into ranked candidate pairs.
//
// For query i, database images are ranked by descending score (ties keep ascending
// index order) and walked until the first score below the threshold. A surviving
// image p yields the pair (i, p) only when i < p, so the pair set is complete only
// when every image of the corpus is queried; Run does that.
type Selector struct {
	scorer    *Scorer
	threshold float32
	normalize bool
	targets   *roaring.Bitmap
	opts      options

	scores []float32
	order  []int
}

// NewSelector creates a selector. Queries are normalized when the database was.
func NewSelector(scorer *Scorer, threshold float32, optFns ...Option) *Selector {
	return &Selector{
		scorer:    scorer,
		threshold: threshold,
		normalize: scorer.Normalize(),
		opts:      applyOptions(optFns),
		scores:    make([]float32, scorer.NumImages()),
		order:     make([]int, scorer.NumImages()),
	}
}

// Threshold returns the minimum score of a candidate.
func (s *Selector) Threshold() float32 {
	return s.threshold
}

// SetTargets restricts pair targets to the given image indices. A nil set allows
// every image.
func (s *Selector) SetTargets(targets *roaring.Bitmap) {
	s.targets = targets
}

// NonEmptyImages returns the indices of batches that hold descriptors.
func NonEmptyImages(batches []descriptor.Batch) *roaring.Bitmap {
	bm := roaring.New()
	for i, b := range batches {
		if !b.Empty() {
			bm.Add(uint32(i))
		}
	}
	return bm
}

// Run queries every batch in order and returns the union of their pairs. When matrix
// is non-nil, row i receives the full score row of query i; rows of empty queries are
// left untouched.
func (s *Selector) Run(batches []descriptor.Batch, matrix *ScoreMatrix) (*PairSet, error) {
	if matrix != nil && matrix.Size() != len(batches) {
		return nil, fmt.Errorf("score matrix is %d×%d for %d images", matrix.Size(), matrix.Size(), len(batches))
	}
	s.SetTargets(NonEmptyImages(batches))

	pairs := NewPairSet()
	total := len(batches)
	for i, b := range batches {
		if err := s.Query(i, b, pairs, matrix); err != nil {
			return nil, err
		}
		s.opts.progress(i+1, total)
	}

	s.opts.logger.Info("candidate selection completed",
		"images", total,
		"pairs", pairs.Len(),
		"threshold", s.threshold,
	)
	return pairs, nil
}

// Query processes query image i and adds its pairs to pairs.
func (s *Selector) Query(i int, b descriptor.Batch, pairs *PairSet, matrix *ScoreMatrix) error {
	if i < 0 || (matrix != nil && i >= matrix.Size()) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	n := b.Len()
	if n == 0 {
		return nil
	}

	start := time.Now()
	scored, err := s.scorer.Score(b, s.normalize, s.scores)
	if err != nil {
		err = fmt.Errorf("query image %d: %w", i, err)
		s.opts.metricsCollector.RecordQuery(n, time.Since(start), err)
		s.opts.logger.LogQuery(i, n, 0, err)
		return err
	}
	if !scored {
		return nil
	}

	emitted := s.rank(i, pairs)

	if matrix != nil {
		copy(matrix.Row(i), s.scores)
	}

	s.opts.metricsCollector.RecordQuery(n, time.Since(start), nil)
	s.opts.metricsCollector.RecordPairs(emitted)
	s.opts.logger.LogQuery(i, n, emitted, nil)
	return nil
}

// rank walks the score row in descending order and returns the number of new pairs.
func (s *Selector) rank(i int, pairs *PairSet) int {
	for p := range s.order {
		s.order[p] = p
	}
	scores := s.scores
	slices.SortStableFunc(s.order, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})

	emitted := 0
	for _, p := range s.order {
		if scores[p] < s.threshold {
			break
		}
		if i >= p {
			continue
		}
		if s.targets != nil && !s.targets.Contains(uint32(p)) {
			continue
		}
		if !pairs.Contains(i, p) {
			emitted++
		}
		pairs.Add(i, p)
	}
	return emitted
}
