package vocabtree

import (
	"fmt"
	"math"

	"github.com/hupe1980/vocabmatch/distance"
	"github.com/hupe1980/vocabmatch/internal/conv"
)

// SetDistanceType sets the distance mode used for normalization and scoring.
func (t *Tree) SetDistanceType(d distance.Type) {
	t.dist = d
}

// DistanceType returns the distance mode.
func (t *Tree) DistanceType() distance.Type {
	return t.dist
}

// SetInteriorNodeWeight sets the weight of every non-leaf node and refreshes the
// stored values of their postings.
func (t *Tree) SetInteriorNodeWeight(w float32) {
	t.interiorWeight = w
	for id, isLeaf := range t.leaf {
		if !isLeaf {
			t.setWeight(id, w)
		}
	}
}

// SetConstantLeafWeights sets every leaf weight to 1.
func (t *Tree) SetConstantLeafWeights() {
	for id, isLeaf := range t.leaf {
		if isLeaf {
			t.setWeight(id, 1)
		}
	}
}

func (t *Tree) setWeight(id int, w float32) {
	t.weights[id] = w
	inv := t.invFiles[id]
	for i := range inv {
		inv[i].value = inv[i].count * w
	}
}

// Weight returns the weight of node id.
func (t *Tree) Weight(id int) float32 {
	return t.weights[id]
}

// ClearDatabase removes every image from the inverted files.
func (t *Tree) ClearDatabase() {
	for i := range t.invFiles {
		t.invFiles[i] = nil
	}
	t.images.Clear()
}

// NumImages returns the number of images in the database.
func (t *Tree) NumImages() int {
	return int(t.images.GetCardinality())
}

// HasImage reports whether id was added to the database.
func (t *Tree) HasImage(id int) bool {
	return id >= 0 && t.images.Contains(uint32(id))
}

// AddImageToDatabase quantizes n descriptors and appends one posting per visited node
// to the inverted files. Adding an id twice is an error; n may be 0.
func (t *Tree) AddImageToDatabase(id, n int, data []byte) error {
	if !t.Built() {
		return ErrNotBuilt
	}
	img, err := conv.IntToUint32(id)
	if err != nil {
		return fmt.Errorf("%w: image id: %w", ErrInvalidArgument, err)
	}
	if n < 0 || len(data) < n*t.dim {
		return fmt.Errorf("%w: %d descriptors need %d bytes, got %d", ErrInvalidArgument, n, n*t.dim, len(data))
	}
	if t.images.Contains(img) {
		return fmt.Errorf("%w: image %d already in database", ErrInvalidArgument, id)
	}

	counts, order := t.quantize(n, data)
	for _, node := range order {
		c := counts[node]
		t.invFiles[node] = append(t.invFiles[node], posting{
			image: img,
			count: c,
			value: c * t.weights[node],
		})
	}
	t.images.Add(img)

	t.opts.logger.Debug("adding vector", "id", id, "keys", n, "nodes", len(order))
	return nil
}

// quantize returns per-node visit counts and the visited node ids in first-visit order.
func (t *Tree) quantize(n int, data []byte) (map[int]float32, []int) {
	counts := make(map[int]float32)
	var order []int
	var path []int
	for i := 0; i < n; i++ {
		path = t.path(data[i*t.dim:(i+1)*t.dim], path[:0])
		for _, id := range path {
			if _, ok := counts[id]; !ok {
				order = append(order, id)
			}
			counts[id]++
		}
	}
	return counts, order
}

// ComputeTFIDFWeights sets every leaf weight to ln(numImages / df), where df is the
// number of database images that reach the leaf, or 0 for leaves no image reaches.
func (t *Tree) ComputeTFIDFWeights(numImages int) {
	for id, isLeaf := range t.leaf {
		if !isLeaf {
			continue
		}
		var w float32
		if df := len(t.invFiles[id]); df > 0 && numImages > 0 {
			w = float32(math.Log(float64(numImages) / float64(df)))
		}
		t.setWeight(id, w)
	}
}

// NormalizeDatabase scales the stored vector of every image with id in
// [startID, startID+numImages) to unit magnitude (L2 for Dot, L1 for Min).
func (t *Tree) NormalizeDatabase(startID, numImages int) {
	if numImages <= 0 {
		return
	}
	sums := make([]float64, numImages)
	for _, inv := range t.invFiles {
		for _, p := range inv {
			idx := int(p.image) - startID
			if idx < 0 || idx >= numImages {
				continue
			}
			if t.dist == distance.TypeMin {
				sums[idx] += math.Abs(float64(p.value))
			} else {
				sums[idx] += float64(p.value) * float64(p.value)
			}
		}
	}
	mags := make([]float32, numImages)
	for i, s := range sums {
		if t.dist == distance.TypeMin {
			mags[i] = float32(s)
		} else {
			mags[i] = float32(math.Sqrt(s))
		}
	}
	for _, inv := range t.invFiles {
		for i := range inv {
			idx := int(inv[i].image) - startID
			if idx < 0 || idx >= numImages || mags[idx] == 0 {
				continue
			}
			inv[i].value /= mags[idx]
		}
	}
	t.opts.logger.Debug("database normalized", "start", startID, "images", numImages, "distance", t.dist)
}

// ScoreQueryKeys scores n query descriptors against every database image. scores is
// zeroed and then indexed by image id; ids outside the slice are ignored.
func (t *Tree) ScoreQueryKeys(n int, normalize bool, data []byte, scores []float32) error {
	if !t.Built() {
		return ErrNotBuilt
	}
	if n < 0 || len(data) < n*t.dim {
		return fmt.Errorf("%w: %d descriptors need %d bytes, got %d", ErrInvalidArgument, n, n*t.dim, len(data))
	}
	for i := range scores {
		scores[i] = 0
	}

	counts, order := t.quantize(n, data)
	query := make([]float32, len(order))
	for i, id := range order {
		query[i] = counts[id] * t.weights[id]
	}
	if normalize {
		if mag := t.dist.Magnitude(query); mag > 0 {
			for i := range query {
				query[i] /= mag
			}
		}
	}

	for i, id := range order {
		q := query[i]
		if q == 0 {
			continue
		}
		for _, p := range t.invFiles[id] {
			if int(p.image) >= len(scores) {
				continue
			}
			scores[p.image] += t.dist.Accumulate(q, p.value)
		}
	}
	return nil
}
