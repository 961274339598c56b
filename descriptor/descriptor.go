package descriptor

import (
	"errors"
	"fmt"
)

// Dim is the SIFT descriptor dimension.
const Dim = 128

// ErrUnsupportedFormat is returned when a descriptor layout is not a fixed-dimension
// byte layout this package can address.
var ErrUnsupportedFormat = errors.New("unsupported descriptor format")

// Format identifies the memory layout of descriptors in a Batch.
type Format uint8

const (
	// FormatUnknown is the zero value and never valid.
	FormatUnknown Format = iota
	// FormatSIFT is 128 unsigned bytes per descriptor.
	FormatSIFT
)

func (f Format) String() string {
	switch f {
	case FormatSIFT:
		return "SIFT"
	default:
		return fmt.Sprintf("Unknown(%d)", f)
	}
}

// Dim returns the descriptor dimension of the format, or 0 if unsupported.
func (f Format) Dim() int {
	switch f {
	case FormatSIFT:
		return Dim
	default:
		return 0
	}
}

// regionsTypes maps sidecar regions type names to formats.
var regionsTypes = map[string]Format{
	"SIFT_Regions": FormatSIFT,
}

// ParseRegionsType maps a regions type name (as written in an image_describer sidecar)
// to a Format.
func ParseRegionsType(name string) (Format, error) {
	f, ok := regionsTypes[name]
	if !ok {
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	return f, nil
}

// ErrDimensionMismatch indicates a descriptor batch whose dimension differs from the
// corpus dimension.
type ErrDimensionMismatch struct {
	Image    int
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("image %d: dimension mismatch: expected %d, got %d", e.Image, e.Expected, e.Actual)
}

// Batch holds the descriptors of one image, back to back.
type Batch struct {
	Format Format
	Dim    int
	Data   []byte
}

// NewBatch wraps raw SIFT descriptor bytes.
func NewBatch(data []byte) Batch {
	return Batch{Format: FormatSIFT, Dim: Dim, Data: data}
}

// Len returns the number of descriptors in the batch.
func (b Batch) Len() int {
	if b.Dim <= 0 {
		return 0
	}
	return len(b.Data) / b.Dim
}

// Empty reports whether the batch has no descriptors.
func (b Batch) Empty() bool {
	return b.Len() == 0
}

// Descriptor returns the i-th descriptor. The slice aliases the batch data.
func (b Batch) Descriptor(i int) []byte {
	return b.Data[i*b.Dim : (i+1)*b.Dim]
}

// Validate checks that the batch is addressable as fixed-size descriptors of dimension
// dim. image is only used to annotate the error.
func (b Batch) Validate(image, dim int) error {
	if b.Format != FormatUnknown && b.Format.Dim() == 0 {
		return fmt.Errorf("image %d: %w: %v", image, ErrUnsupportedFormat, b.Format)
	}
	if len(b.Data) == 0 {
		return nil
	}
	if b.Dim != dim {
		return &ErrDimensionMismatch{Image: image, Expected: dim, Actual: b.Dim}
	}
	if len(b.Data)%dim != 0 {
		return &ErrDimensionMismatch{Image: image, Expected: dim, Actual: len(b.Data) % dim}
	}
	return nil
}

// CountTotal sums descriptor counts across a corpus in one pass and returns the
// common dimension. Empty batches do not contribute a dimension. If every batch is
// empty the dimension defaults to Dim.
func CountTotal(batches []Batch) (total int, dim int, err error) {
	for i, b := range batches {
		if b.Empty() {
			continue
		}
		if dim == 0 {
			dim = b.Dim
		}
		if err := b.Validate(i, dim); err != nil {
			return 0, 0, err
		}
		total += b.Len()
	}
	if dim == 0 {
		dim = Dim
	}
	return total, dim, nil
}
