package descriptor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegionsType(t *testing.T) {
	f, err := ParseRegionsType("SIFT_Regions")
	require.NoError(t, err)
	assert.Equal(t, FormatSIFT, f)
	assert.Equal(t, Dim, f.Dim())

	_, err = ParseRegionsType("AKAZE_Float_Regions")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestBatch(t *testing.T) {
	b := NewBatch(make([]byte, 3*Dim))
	assert.Equal(t, 3, b.Len())
	assert.False(t, b.Empty())
	assert.Len(t, b.Descriptor(2), Dim)

	assert.True(t, Batch{}.Empty())
	assert.True(t, NewBatch(nil).Empty())
}

func TestBatchValidate(t *testing.T) {
	assert.NoError(t, NewBatch(make([]byte, Dim)).Validate(0, Dim))
	assert.NoError(t, NewBatch(nil).Validate(0, 64))

	err := Batch{Format: FormatSIFT, Dim: 64, Data: make([]byte, 64)}.Validate(4, Dim)
	var dm *ErrDimensionMismatch
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 4, dm.Image)
	assert.Equal(t, Dim, dm.Expected)
	assert.Equal(t, 64, dm.Actual)

	err = Batch{Format: FormatSIFT, Dim: Dim, Data: make([]byte, Dim+3)}.Validate(1, Dim)
	assert.True(t, errors.As(err, &dm))

	err = Batch{Format: Format(9), Dim: Dim, Data: make([]byte, Dim)}.Validate(0, Dim)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestCountTotal(t *testing.T) {
	batches := []Batch{
		NewBatch(make([]byte, 2*Dim)),
		NewBatch(nil),
		NewBatch(make([]byte, 5*Dim)),
	}
	total, dim, err := CountTotal(batches)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Equal(t, Dim, dim)

	total, dim, err = CountTotal([]Batch{{}, {}})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Equal(t, Dim, dim)

	batches = append(batches, Batch{Format: FormatSIFT, Dim: 64, Data: make([]byte, 64)})
	_, _, err = CountTotal(batches)
	var dm *ErrDimensionMismatch
	assert.True(t, errors.As(err, &dm))
	assert.Equal(t, 3, dm.Image)
}
