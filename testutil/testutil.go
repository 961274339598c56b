package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/vocabmatch/descriptor"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// Descriptors generates n uniform random byte descriptors back to back.
func (r *RNG) Descriptors(n, dim int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]byte, n*dim)
	for i := range data {
		data[i] = byte(r.rand.Intn(256))
	}
	return data
}

// Jitter returns a copy of center with every component moved by at most spread,
// clamped to the byte range.
func (r *RNG) Jitter(center []byte, spread int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]byte, len(center))
	for i, c := range center {
		v := int(c)
		if spread > 0 {
			v += r.rand.Intn(2*spread+1) - spread
		}
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		out[i] = byte(v)
	}
	return out
}

// ClusteredBatch builds a SIFT-layout batch with perCenter jittered descriptors
// around each center.
func (r *RNG) ClusteredBatch(centers [][]byte, perCenter, spread int) descriptor.Batch {
	if len(centers) == 0 || perCenter <= 0 {
		return descriptor.Batch{Format: descriptor.FormatSIFT, Dim: descriptor.Dim}
	}
	dim := len(centers[0])
	data := make([]byte, 0, len(centers)*perCenter*dim)
	for _, c := range centers {
		for i := 0; i < perCenter; i++ {
			data = append(data, r.Jitter(c, spread)...)
		}
	}
	return descriptor.Batch{Format: descriptor.FormatSIFT, Dim: dim, Data: data}
}

// SeparatedCenters returns k descriptors that are far apart from each other: center c
// is 200 on its own block of dim/k components and 0 elsewhere.
func SeparatedCenters(k, dim int) [][]byte {
	block := dim / k
	if block == 0 {
		block = 1
	}
	centers := make([][]byte, k)
	for c := range centers {
		v := make([]byte, dim)
		for i := c * block; i < (c+1)*block && i < dim; i++ {
			v[i] = 200
		}
		centers[c] = v
	}
	return centers
}

// Concat joins descriptors into one buffer.
func Concat(descs ...[]byte) []byte {
	var n int
	for _, d := range descs {
		n += len(d)
	}
	out := make([]byte, 0, n)
	for _, d := range descs {
		out = append(out, d...)
	}
	return out
}

// Pointers splits back-to-back descriptors into a pointer table.
func Pointers(data []byte, dim int) [][]byte {
	n := len(data) / dim
	ptrs := make([][]byte, n)
	for i := range ptrs {
		ptrs[i] = data[i*dim : (i+1)*dim]
	}
	return ptrs
}
