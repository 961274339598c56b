package kmeans

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"github.com/hupe1980/vocabmatch/distance"
)

// DefaultMaxIter bounds the Lloyd iterations of a single run.
const DefaultMaxIter = 20

// ErrInvalidK is returned when k is not positive.
var ErrInvalidK = errors.New("k must be positive")

// Result is a clustering of a point set.
type Result struct {
	// Centroids holds K()*dim values, row-major.
	Centroids []float32
	// Assign maps each point to its cluster.
	Assign []int
	// Counts holds the number of points per cluster.
	Counts []int
	// Distortion is the sum of squared distances to the assigned centroids.
	Distortion float64

	dim int
}

// K returns the number of clusters. It can be lower than requested when the input has
// fewer distinct points than k.
func (r *Result) K() int {
	if r.dim == 0 {
		return 0
	}
	return len(r.Centroids) / r.dim
}

// Centroid returns the i-th centroid.
func (r *Result) Centroid(i int) []float32 {
	return r.Centroids[i*r.dim : (i+1)*r.dim]
}

// Cluster partitions points into k clusters using k-means++ seeding and Lloyd's
// algorithm. It returns nil when there are fewer points than clusters.
func Cluster(ctx context.Context, points [][]byte, dim, k, maxIter int, rng *rand.Rand) (*Result, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	n := len(points)
	if n < k {
		return nil, nil // Not enough points to cluster
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}

	centroids := seed(points, dim, k, rng)
	k = len(centroids) / dim

	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}
	counts := make([]int, k)
	sums := make([]float64, k*dim)

	var distortion float64
	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := false
		distortion = 0
		for i, p := range points {
			best, d := nearest(p, centroids, dim)
			distortion += float64(d)
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		for i := range sums {
			sums[i] = 0
		}
		for i := range counts {
			counts[i] = 0
		}
		for i, p := range points {
			c := assign[i]
			row := sums[c*dim : (c+1)*dim]
			for d, v := range p {
				row[d] += float64(v)
			}
			counts[c]++
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Keep the previous centroid; the cluster stays empty.
				continue
			}
			scale := 1.0 / float64(counts[c])
			for d := 0; d < dim; d++ {
				centroids[c*dim+d] = float32(sums[c*dim+d] * scale)
			}
		}
	}

	for i := range counts {
		counts[i] = 0
	}
	for _, c := range assign {
		counts[c]++
	}

	return &Result{
		Centroids:  centroids,
		Assign:     assign,
		Counts:     counts,
		Distortion: distortion,
		dim:        dim,
	}, nil
}

// ClusterRestarts runs Cluster restarts times and keeps the run with the lowest
// distortion.
func ClusterRestarts(ctx context.Context, points [][]byte, dim, k, maxIter, restarts int, rng *rand.Rand) (*Result, error) {
	if restarts < 1 {
		restarts = 1
	}
	var best *Result
	for r := 0; r < restarts; r++ {
		res, err := Cluster(ctx, points, dim, k, maxIter, rng)
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, nil
		}
		if best == nil || res.Distortion < best.Distortion {
			best = res
		}
	}
	return best, nil
}

// AssignPartition finds the closest centroid for a descriptor.
func AssignPartition(vec []byte, centroids []float32, dim int) int {
	best, _ := nearest(vec, centroids, dim)
	return best
}

func nearest(p []byte, centroids []float32, dim int) (int, float32) {
	best := -1
	minDist := float32(math.MaxFloat32)
	k := len(centroids) / dim
	for j := 0; j < k; j++ {
		d := distance.SquaredL2Bytes(p, centroids[j*dim:(j+1)*dim])
		if d < minDist {
			minDist = d
			best = j
		}
	}
	return best, minDist
}

// seed picks up to k initial centroids with k-means++. Points identical to an existing
// centroid have zero weight, so fewer than k centroids come back when the input has
// fewer than k distinct points.
func seed(points [][]byte, dim, k int, rng *rand.Rand) []float32 {
	n := len(points)
	centroids := make([]float32, 0, k*dim)
	centroids = appendPoint(centroids, points[rng.Intn(n)])

	dists := make([]float64, n)
	for i, p := range points {
		dists[i] = float64(distance.SquaredL2Bytes(p, centroids[:dim]))
	}

	for len(centroids) < k*dim {
		var total float64
		for _, d := range dists {
			total += d
		}
		if total == 0 {
			break
		}
		target := rng.Float64() * total
		next := -1
		for i, d := range dists {
			if d == 0 {
				continue
			}
			next = i
			target -= d
			if target < 0 {
				break
			}
		}
		start := len(centroids)
		centroids = appendPoint(centroids, points[next])
		c := centroids[start:]
		for i, p := range points {
			if d := float64(distance.SquaredL2Bytes(p, c)); d < dists[i] {
				dists[i] = d
			}
		}
	}
	return centroids
}

func appendPoint(dst []float32, p []byte) []float32 {
	for _, v := range p {
		dst = append(dst, float32(v))
	}
	return dst
}
