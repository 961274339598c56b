package chunkstore

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/vocabmatch/descriptor"
	"github.com/hupe1980/vocabmatch/resource"
)

// DefaultMaxChunkBytes caps a single contiguous allocation (8 MiB).
const DefaultMaxChunkBytes = 1 << 23

var (
	// ErrInvalidChunkSize is returned when the chunk cap is not a positive multiple of
	// the descriptor dimension.
	ErrInvalidChunkSize = errors.New("chunk size must be a positive multiple of the dimension")
	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("chunk store already initialized")
	// ErrNotInitialized is returned by Append before Initialize.
	ErrNotInitialized = errors.New("chunk store not initialized")
	// ErrCapacityExceeded is returned when more descriptors are appended than announced.
	ErrCapacityExceeded = errors.New("chunk store capacity exceeded")
)

type options struct {
	maxChunkBytes int
	controller    *resource.Controller
	logger        *slog.Logger
}

// Option configures a Store.
type Option func(*options)

// WithMaxChunkBytes overrides DefaultMaxChunkBytes.
func WithMaxChunkBytes(n int) Option {
	return func(o *options) {
		o.maxChunkBytes = n
	}
}

// WithResourceController charges the chunk allocation against a memory budget.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Store is a chunked descriptor buffer. It is not safe for concurrent use.
type Store struct {
	opts options

	dim      int
	total    int
	reserved int64

	chunks   [][]byte
	pointers [][]byte

	cur    int // current chunk
	offset int // write offset in the current chunk

	initialized bool
}

// New creates an empty store.
func New(optFns ...Option) *Store {
	o := options{
		maxChunkBytes: DefaultMaxChunkBytes,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return &Store{opts: o}
}

// Initialize allocates ceil(total*dim / max) chunks and a pointer table for total
// descriptors.
func (s *Store) Initialize(total, dim int) error {
	if s.initialized {
		return ErrAlreadyInitialized
	}
	if total < 0 {
		return fmt.Errorf("invalid descriptor count: %d", total)
	}
	if dim <= 0 {
		return fmt.Errorf("invalid dimension: %d", dim)
	}
	max := s.opts.maxChunkBytes
	if max <= 0 || max%dim != 0 {
		return fmt.Errorf("%w: %d bytes, dimension %d", ErrInvalidChunkSize, max, dim)
	}

	totalBytes := int64(total) * int64(dim)
	if err := s.opts.controller.ReserveMemory(totalBytes); err != nil {
		return fmt.Errorf("allocate %d descriptors: %w", total, err)
	}
	s.reserved = totalBytes

	numChunks := int((totalBytes + int64(max) - 1) / int64(max))
	s.chunks = make([][]byte, numChunks)
	remaining := totalBytes
	for i := range s.chunks {
		size := int64(max)
		if remaining < size {
			size = remaining
		}
		s.chunks[i] = make([]byte, size)
		remaining -= size
	}
	s.pointers = make([][]byte, 0, total)

	s.dim = dim
	s.total = total
	s.initialized = true

	s.opts.logger.Debug("chunk store initialized",
		"descriptors", total,
		"dimension", dim,
		"bytes", totalBytes,
		"chunks", numChunks,
	)
	return nil
}

// Append copies the descriptors of one image. An empty batch is a no-op.
func (s *Store) Append(image int, b descriptor.Batch) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if b.Empty() {
		return nil
	}
	if err := b.Validate(image, s.dim); err != nil {
		return err
	}
	n := b.Len()
	if len(s.pointers)+n > s.total {
		return fmt.Errorf("%w: image %d adds %d descriptors to %d of %d",
			ErrCapacityExceeded, image, n, len(s.pointers), s.total)
	}

	for i := 0; i < n; i++ {
		chunk := s.chunks[s.cur]
		dst := chunk[s.offset : s.offset+s.dim : s.offset+s.dim]
		copy(dst, b.Descriptor(i))
		s.pointers = append(s.pointers, dst)

		s.offset += s.dim
		if s.offset == len(chunk) {
			s.cur++
			s.offset = 0
		}
	}
	return nil
}

// Pointers returns the descriptor pointer table. Entries alias chunk memory and are
// valid until Release.
func (s *Store) Pointers() [][]byte {
	return s.pointers
}

// Len returns the number of appended descriptors.
func (s *Store) Len() int {
	return len(s.pointers)
}

// Capacity returns the descriptor count given to Initialize.
func (s *Store) Capacity() int {
	return s.total
}

// Dim returns the descriptor dimension.
func (s *Store) Dim() int {
	return s.dim
}

// NumChunks returns the number of allocated chunks.
func (s *Store) NumChunks() int {
	return len(s.chunks)
}

// ChunkSize returns the size in bytes of chunk i.
func (s *Store) ChunkSize(i int) int {
	return len(s.chunks[i])
}

// MaxChunkBytes returns the configured chunk cap.
func (s *Store) MaxChunkBytes() int {
	return s.opts.maxChunkBytes
}

// Release drops all chunks and the pointer table and returns the reserved memory.
// The store can be initialized again afterwards.
func (s *Store) Release() {
	s.opts.controller.ReleaseMemory(s.reserved)
	s.reserved = 0
	s.chunks = nil
	s.pointers = nil
	s.cur, s.offset = 0, 0
	s.dim, s.total = 0, 0
	s.initialized = false
}
