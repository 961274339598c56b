package vocabtree

import (
	"math"
	"testing"

	"github.com/hupe1980/vocabmatch/descriptor"
	"github.com/hupe1980/vocabmatch/distance"
	"github.com/hupe1980/vocabmatch/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture builds a depth-0 tree over four separated centers and returns it with four
// images: 0 and 2 share centers 0 and 1, image 1 is center 2, image 3 is center 3.
func fixture(t *testing.T, dist distance.Type) (*Tree, [][]byte, []descriptor.Batch) {
	t.Helper()
	centers := testutil.SeparatedCenters(4, descriptor.Dim)
	rng := testutil.NewRNG(1)

	images := []descriptor.Batch{
		rng.ClusteredBatch([][]byte{centers[0], centers[1]}, 5, 0),
		rng.ClusteredBatch([][]byte{centers[2]}, 10, 0),
		rng.ClusteredBatch([][]byte{centers[0], centers[1]}, 5, 0),
		rng.ClusteredBatch([][]byte{centers[3]}, 10, 0),
	}

	var all []byte
	for _, b := range images {
		all = append(all, b.Data...)
	}
	ptrs := testutil.Pointers(all, descriptor.Dim)

	tree := New(WithSeed(3), WithDistance(dist))
	require.NoError(t, tree.Build(len(ptrs), descriptor.Dim, 0, 4, 1, ptrs))
	return tree, centers, images
}

func populate(t *testing.T, tree *Tree, images []descriptor.Batch, tfidf, normalize bool) {
	t.Helper()
	tree.Flatten()
	tree.SetInteriorNodeWeight(0)
	tree.SetConstantLeafWeights()
	tree.ClearDatabase()
	for i, b := range images {
		require.NoError(t, tree.AddImageToDatabase(i, b.Len(), b.Data))
	}
	if tfidf {
		tree.ComputeTFIDFWeights(len(images))
	}
	if normalize {
		tree.NormalizeDatabase(0, len(images))
	}
}

func TestScore_IdenticalImages(t *testing.T) {
	for _, dist := range []distance.Type{distance.TypeMin, distance.TypeDot} {
		t.Run(dist.String(), func(t *testing.T) {
			tree, _, images := fixture(t, dist)
			populate(t, tree, images, true, true)
			assert.Equal(t, 4, tree.NumImages())

			scores := make([]float32, 4)
			require.NoError(t, tree.ScoreQueryKeys(images[0].Len(), true, images[0].Data, scores))

			assert.InDelta(t, 1.0, scores[0], 1e-5)
			assert.InDelta(t, 0.0, scores[1], 1e-6)
			assert.InDelta(t, 1.0, scores[2], 1e-5)
			assert.InDelta(t, 0.0, scores[3], 1e-6)
		})
	}
}

func TestComputeTFIDFWeights(t *testing.T) {
	tree, centers, images := fixture(t, distance.TypeMin)
	// Only images 0 and 1 enter the database; center 3 is never reached.
	populate(t, tree, images[:2], true, false)

	weightOf := func(c []byte) float32 {
		leaf, err := tree.Leaf(c)
		require.NoError(t, err)
		return tree.Weight(leaf)
	}

	assert.InDelta(t, math.Log(2), weightOf(centers[0]), 1e-6)
	assert.InDelta(t, math.Log(2), weightOf(centers[2]), 1e-6)
	assert.Zero(t, weightOf(centers[3]))
	assert.Zero(t, tree.Weight(0))
}

func TestScore_ConstantWeightsUnnormalized(t *testing.T) {
	tree, _, images := fixture(t, distance.TypeMin)
	populate(t, tree, images, false, false)

	scores := make([]float32, 4)
	require.NoError(t, tree.ScoreQueryKeys(images[1].Len(), false, images[1].Data, scores))

	// Histogram intersection of raw counts.
	assert.Equal(t, []float32{0, 10, 0, 0}, scores)
}

func TestScore_InteriorWeightSilencesInteriorNodes(t *testing.T) {
	rng := testutil.NewRNG(9)
	data := rng.Descriptors(60, descriptor.Dim)
	ptrs := testutil.Pointers(data, descriptor.Dim)

	tree := New(WithSeed(2))
	require.NoError(t, tree.Build(len(ptrs), descriptor.Dim, 1, 3, 1, ptrs))
	tree.Flatten()
	tree.SetInteriorNodeWeight(0)
	tree.SetConstantLeafWeights()
	tree.ClearDatabase()
	require.NoError(t, tree.AddImageToDatabase(0, 60, data))

	for id := 0; id < tree.NumNodes(); id++ {
		if tree.leaf[id] {
			assert.Equal(t, float32(1), tree.Weight(id))
		} else {
			assert.Zero(t, tree.Weight(id))
		}
	}

	scores := make([]float32, 1)
	require.NoError(t, tree.ScoreQueryKeys(60, false, data, scores))
	assert.Equal(t, float32(60), scores[0])
}

func TestScore_EmptyAndOutOfRange(t *testing.T) {
	tree, _, images := fixture(t, distance.TypeMin)
	populate(t, tree, images, true, true)

	scores := []float32{5, 5}
	require.NoError(t, tree.ScoreQueryKeys(0, true, nil, scores))
	assert.Equal(t, []float32{0, 0}, scores)

	// Image 2 lies outside the score slice and is ignored.
	require.NoError(t, tree.ScoreQueryKeys(images[0].Len(), true, images[0].Data, scores))
	assert.InDelta(t, 1.0, scores[0], 1e-5)
	assert.Zero(t, scores[1])
}

func TestAddImageToDatabase(t *testing.T) {
	tree := New()
	assert.ErrorIs(t, tree.AddImageToDatabase(0, 0, nil), ErrNotBuilt)
	assert.ErrorIs(t, tree.ScoreQueryKeys(0, false, nil, nil), ErrNotBuilt)

	tree, _, images := fixture(t, distance.TypeMin)
	populate(t, tree, images, false, false)

	assert.ErrorIs(t, tree.AddImageToDatabase(0, 0, nil), ErrInvalidArgument)
	assert.ErrorIs(t, tree.AddImageToDatabase(9, 2, make([]byte, descriptor.Dim)), ErrInvalidArgument)
	assert.ErrorIs(t, tree.AddImageToDatabase(-1, 0, nil), ErrInvalidArgument)

	require.NoError(t, tree.AddImageToDatabase(4, 0, nil))
	assert.True(t, tree.HasImage(4))
	assert.Equal(t, 5, tree.NumImages())

	tree.ClearDatabase()
	assert.Zero(t, tree.NumImages())
	assert.False(t, tree.HasImage(0))
}

func TestNormalizeDatabase_Range(t *testing.T) {
	tree, _, images := fixture(t, distance.TypeMin)
	populate(t, tree, images, false, false)
	// Only image 1 is normalized.
	tree.NormalizeDatabase(1, 1)

	scores := make([]float32, 4)
	require.NoError(t, tree.ScoreQueryKeys(images[1].Len(), true, images[1].Data, scores))
	assert.InDelta(t, 1.0, scores[1], 1e-6)

	require.NoError(t, tree.ScoreQueryKeys(images[3].Len(), false, images[3].Data, scores))
	assert.Equal(t, float32(10), scores[3])
}
