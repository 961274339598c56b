package vocabmatch

import (
	"errors"

	"github.com/hupe1980/vocabmatch/descriptor"
	"github.com/hupe1980/vocabmatch/loader"
	"github.com/hupe1980/vocabmatch/resource"
)

var (
	// ErrUnreadableInput is returned when a scene file, descriptor sidecar or feature
	// file cannot be read.
	ErrUnreadableInput = loader.ErrUnreadableInput

	// ErrUnsupportedDescriptorFormat is returned when descriptors are not a supported
	// fixed-dimension layout.
	ErrUnsupportedDescriptorFormat = descriptor.ErrUnsupportedFormat

	// ErrMemoryLimit is returned when the descriptor store does not fit the memory budget.
	ErrMemoryLimit = resource.ErrMemoryLimit

	// ErrTreeLoad is returned when a tree or database file cannot be loaded.
	ErrTreeLoad = errors.New("failed to load vocabulary tree")

	// ErrNotQueryReady is returned when scoring is requested before the database is
	// populated and weighted.
	ErrNotQueryReady = errors.New("database is not query ready")

	// ErrScoreLength is returned when a score slice does not match the database size.
	ErrScoreLength = errors.New("score slice length does not match database size")

	// ErrMalformedPairs is returned when a pair list cannot be parsed.
	ErrMalformedPairs = errors.New("malformed pair list")

	// ErrMalformedMatrix is returned when a score matrix cannot be parsed.
	ErrMalformedMatrix = errors.New("malformed score matrix")

	// ErrIndexOutOfRange is returned for a query index outside the corpus.
	ErrIndexOutOfRange = errors.New("image index out of range")
)

// ErrDimensionMismatch indicates a descriptor batch whose dimension differs from the
// corpus dimension.
type ErrDimensionMismatch = descriptor.ErrDimensionMismatch
