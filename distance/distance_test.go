package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 32},
		{"Zero", []float32{0, 0, 0}, []float32{0, 0, 0}, 0},
		{"Mixed", []float32{1, -1, 2}, []float32{1, 1, -2}, -4},
		{"Empty", []float32{}, []float32{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Dot(tt.a, tt.b), 1e-5)
		})
	}
}

func TestSquaredL2Bytes(t *testing.T) {
	a := []byte{0, 10, 255}
	c := []float32{0, 12, 250}
	assert.InDelta(t, 4+25, SquaredL2Bytes(a, c), 1e-5)
	assert.InDelta(t, SquaredL2([]float32{0, 10, 255}, c), SquaredL2Bytes(a, c), 1e-5)
}

func TestAccumulate(t *testing.T) {
	assert.InDelta(t, 0.12, TypeDot.Accumulate(0.3, 0.4), 1e-6)
	assert.InDelta(t, 0.3, TypeMin.Accumulate(0.3, 0.4), 1e-6)
	assert.InDelta(t, 0.3, TypeMin.Accumulate(0.4, 0.3), 1e-6)
}

func TestMagnitude(t *testing.T) {
	v := []float32{3, 4}
	assert.InDelta(t, 5, TypeDot.Magnitude(v), 1e-6)
	assert.InDelta(t, 7, TypeMin.Magnitude(v), 1e-6)
	assert.Zero(t, TypeDot.Magnitude(nil))
	assert.False(t, math.IsNaN(float64(TypeMin.Magnitude(nil))))
}

func TestParseType(t *testing.T) {
	d, err := ParseType("Dot")
	require.NoError(t, err)
	assert.Equal(t, TypeDot, d)

	m, err := ParseType(" min ")
	require.NoError(t, err)
	assert.Equal(t, TypeMin, m)
	assert.Equal(t, "Min", m.String())

	_, err = ParseType("l2")
	assert.Error(t, err)
	assert.False(t, Type(7).Valid())
}
