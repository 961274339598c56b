package distance

import (
	"fmt"
	"math"
	"strings"
)

// Type is the distance mode used to score a query vector against database vectors.
type Type int

const (
	// TypeDot scores with the inner product.
	TypeDot Type = iota
	// TypeMin scores with the sum of element-wise minima.
	TypeMin
)

func (t Type) String() string {
	switch t {
	case TypeDot:
		return "Dot"
	case TypeMin:
		return "Min"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// ParseType parses a distance mode name ("dot" or "min", case-insensitive).
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dot":
		return TypeDot, nil
	case "min":
		return TypeMin, nil
	default:
		return 0, fmt.Errorf("unsupported distance type: %q", s)
	}
}

// Valid reports whether t is a known distance mode.
func (t Type) Valid() bool {
	return t == TypeDot || t == TypeMin
}

// Accumulate returns the contribution of one vector component pair to a score.
func (t Type) Accumulate(q, d float32) float32 {
	if t == TypeMin {
		if q < d {
			return q
		}
		return d
	}
	return q * d
}

// Magnitude returns the norm matching the distance mode: L2 for Dot, L1 for Min.
func (t Type) Magnitude(values []float32) float32 {
	if t == TypeMin {
		var sum float32
		for _, v := range values {
			if v < 0 {
				v = -v
			}
			sum += v
		}
		return sum
	}
	var sum float64
	for _, v := range values {
		sum += float64(v) * float64(v)
	}
	return float32(math.Sqrt(sum))
}

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// SquaredL2 calculates the squared L2 distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// SquaredL2Bytes calculates the squared L2 distance between a byte descriptor and a
// float centroid of the same dimension.
func SquaredL2Bytes(a []byte, c []float32) float32 {
	var sum float32
	c = c[:len(a)]
	for i, v := range a {
		d := float32(v) - c[i]
		sum += d * d
	}
	return sum
}
