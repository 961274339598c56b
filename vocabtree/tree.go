package vocabtree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vocabmatch/distance"
	"github.com/hupe1980/vocabmatch/internal/compress"
	"github.com/hupe1980/vocabmatch/internal/kmeans"
)

var (
	// ErrNotBuilt is returned by operations that need a tree.
	ErrNotBuilt = errors.New("vocabulary tree not built")
	// ErrInvalidArgument is returned for inconsistent build or insert arguments.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMalformed is returned when persisted data cannot be decoded.
	ErrMalformed = errors.New("malformed vocabulary tree data")
)

type options struct {
	seed        int64
	maxIter     int
	compression compress.Type
	distance    distance.Type
	logger      *slog.Logger
}

// Option configures a Tree.
type Option func(*options)

// WithSeed seeds the clustering RNG.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithMaxIterations bounds the Lloyd iterations per k-means run.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		o.maxIter = n
	}
}

// WithCompression selects the payload compression used by Write and WriteTo.
func WithCompression(t compress.Type) Option {
	return func(o *options) {
		o.compression = t
	}
}

// WithDistance sets the initial distance mode.
func WithDistance(t distance.Type) Option {
	return func(o *options) {
		o.distance = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// node is the pointer form of the tree, used between Build and Flatten.
type node struct {
	id       int
	centroid []float32
	children []*node
}

// posting is one image entry of a node's inverted file.
type posting struct {
	image uint32
	count float32
	value float32
}

// Tree is a vocabulary tree and its image database.
type Tree struct {
	opts options

	dim      int
	numNodes int
	dist     distance.Type

	// Pointer form.
	root *node

	// Flat form: node i has children childIDs[childOffsets[i]:childOffsets[i+1]].
	flat         bool
	centroids    []float32
	childOffsets []uint32
	childIDs     []uint32

	// Per node, indexed by id.
	leaf     []bool
	weights  []float32
	invFiles [][]posting

	interiorWeight float32
	images         *roaring.Bitmap
}

// New creates an empty tree.
func New(optFns ...Option) *Tree {
	o := options{
		seed:        1,
		maxIter:     kmeans.DefaultMaxIter,
		compression: compress.ZSTD,
		distance:    distance.TypeMin,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return &Tree{
		opts:   o,
		dist:   o.distance,
		images: roaring.New(),
	}
}

// Build clusters the descriptors into a tree. See BuildContext.
func (t *Tree) Build(total, dim, depth, branching, restarts int, pointers [][]byte) error {
	return t.BuildContext(context.Background(), total, dim, depth, branching, restarts, pointers)
}

// BuildContext clusters total descriptors of dimension dim hierarchically. The root
// is at level 0 and a node at level l splits into at most branching children while
// l <= depth, it holds at least branching descriptors and branching >= 2. Empty
// clusters are dropped. Building discards any previous tree and database.
func (t *Tree) BuildContext(ctx context.Context, total, dim, depth, branching, restarts int, pointers [][]byte) error {
	if dim <= 0 {
		return fmt.Errorf("%w: dimension %d", ErrInvalidArgument, dim)
	}
	if total != len(pointers) {
		return fmt.Errorf("%w: %d descriptors announced, %d given", ErrInvalidArgument, total, len(pointers))
	}
	if depth < 0 {
		return fmt.Errorf("%w: depth %d", ErrInvalidArgument, depth)
	}
	for i, p := range pointers {
		if len(p) != dim {
			return fmt.Errorf("%w: descriptor %d has %d bytes, want %d", ErrInvalidArgument, i, len(p), dim)
		}
	}

	t.reset()
	t.dim = dim

	b := &builder{
		ctx:       ctx,
		dim:       dim,
		depth:     depth,
		branching: branching,
		restarts:  restarts,
		maxIter:   t.opts.maxIter,
		rng:       rand.New(rand.NewSource(t.opts.seed)),
	}
	root, err := b.build(pointers, 0, make([]float32, dim))
	if err != nil {
		return err
	}

	t.root = root
	t.numNodes = b.next
	t.leaf = b.leaf
	t.weights = make([]float32, t.numNodes)
	t.invFiles = make([][]posting, t.numNodes)

	t.opts.logger.Info("vocabulary tree built",
		"descriptors", total,
		"nodes", t.numNodes,
		"leaves", t.NumLeaves(),
		"depth", depth,
		"branching", branching,
	)
	return nil
}

type builder struct {
	ctx       context.Context
	dim       int
	depth     int
	branching int
	restarts  int
	maxIter   int
	rng       *rand.Rand

	next int
	leaf []bool
}

func (b *builder) build(points [][]byte, level int, centroid []float32) (*node, error) {
	n := &node{id: b.next, centroid: centroid}
	b.next++
	b.leaf = append(b.leaf, true)

	if level > b.depth || b.branching < 2 || len(points) < b.branching {
		return n, nil
	}

	res, err := kmeans.ClusterRestarts(b.ctx, points, b.dim, b.branching, b.maxIter, b.restarts, b.rng)
	if err != nil {
		return nil, err
	}
	if res == nil || res.K() < 2 {
		return n, nil
	}

	parts := make([][][]byte, res.K())
	for i, c := range res.Assign {
		parts[c] = append(parts[c], points[i])
	}

	b.leaf[n.id] = false
	for c, part := range parts {
		if len(part) == 0 {
			continue
		}
		child, err := b.build(part, level+1, append([]float32(nil), res.Centroid(c)...))
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, child)
	}
	return n, nil
}

func (t *Tree) reset() {
	t.dim = 0
	t.numNodes = 0
	t.root = nil
	t.flat = false
	t.centroids = nil
	t.childOffsets = nil
	t.childIDs = nil
	t.leaf = nil
	t.weights = nil
	t.invFiles = nil
	t.interiorWeight = 0
	t.images.Clear()
}

// Flatten converts the tree into contiguous arrays. It is idempotent and keeps
// weights and the database.
func (t *Tree) Flatten() {
	if t.flat || t.root == nil {
		return
	}
	t.centroids, t.childOffsets, t.childIDs = flattenNodes(t.root, t.numNodes, t.dim)
	t.root = nil
	t.flat = true
	t.opts.logger.Debug("vocabulary tree flattened", "nodes", t.numNodes)
}

func flattenNodes(root *node, numNodes, dim int) ([]float32, []uint32, []uint32) {
	centroids := make([]float32, numNodes*dim)
	offsets := make([]uint32, numNodes+1)
	childIDs := make([]uint32, 0, numNodes-1)

	// Preorder visit yields nodes in id order.
	stack := []*node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		copy(centroids[n.id*dim:(n.id+1)*dim], n.centroid)
		offsets[n.id] = uint32(len(childIDs))
		for _, c := range n.children {
			childIDs = append(childIDs, uint32(c.id))
		}
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}
	offsets[numNodes] = uint32(len(childIDs))
	return centroids, offsets, childIDs
}

// Built reports whether the tree has nodes.
func (t *Tree) Built() bool {
	return t.numNodes > 0
}

// Flat reports whether the tree is in flattened form.
func (t *Tree) Flat() bool {
	return t.flat
}

// Dim returns the descriptor dimension.
func (t *Tree) Dim() int {
	return t.dim
}

// NumNodes returns the number of nodes including the root.
func (t *Tree) NumNodes() int {
	return t.numNodes
}

// NumLeaves returns the number of leaves (visual words).
func (t *Tree) NumLeaves() int {
	var n int
	for _, l := range t.leaf {
		if l {
			n++
		}
	}
	return n
}

// path appends the ids of the nodes a descriptor visits below the root. For a tree
// that is a single leaf the root itself is returned.
func (t *Tree) path(desc []byte, dst []int) []int {
	if t.flat {
		id := 0
		for {
			start, end := t.childOffsets[id], t.childOffsets[id+1]
			if start == end {
				break
			}
			id = t.nearestFlat(desc, t.childIDs[start:end])
			dst = append(dst, id)
		}
	} else {
		n := t.root
		for len(n.children) > 0 {
			n = nearestNode(desc, n.children)
			dst = append(dst, n.id)
		}
	}
	if len(dst) == 0 {
		dst = append(dst, 0)
	}
	return dst
}

func (t *Tree) nearestFlat(desc []byte, children []uint32) int {
	best := int(children[0])
	minDist := distance.SquaredL2Bytes(desc, t.centroids[best*t.dim:(best+1)*t.dim])
	for _, c := range children[1:] {
		id := int(c)
		if d := distance.SquaredL2Bytes(desc, t.centroids[id*t.dim:(id+1)*t.dim]); d < minDist {
			minDist = d
			best = id
		}
	}
	return best
}

func nearestNode(desc []byte, children []*node) *node {
	best := children[0]
	minDist := distance.SquaredL2Bytes(desc, best.centroid)
	for _, c := range children[1:] {
		if d := distance.SquaredL2Bytes(desc, c.centroid); d < minDist {
			minDist = d
			best = c
		}
	}
	return best
}

// Leaf returns the id of the leaf a descriptor quantizes to.
func (t *Tree) Leaf(desc []byte) (int, error) {
	if !t.Built() {
		return 0, ErrNotBuilt
	}
	if len(desc) != t.dim {
		return 0, fmt.Errorf("%w: descriptor has %d bytes, want %d", ErrInvalidArgument, len(desc), t.dim)
	}
	p := t.path(desc, nil)
	return p[len(p)-1], nil
}
