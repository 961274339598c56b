package loader

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vocabmatch/codec"
	"github.com/hupe1980/vocabmatch/descriptor"
	"github.com/hupe1980/vocabmatch/internal/conv"
	"github.com/hupe1980/vocabmatch/resource"
)

// DescExt is the extension of binary descriptor files.
const DescExt = ".desc"

type options struct {
	codec      codec.Codec
	controller *resource.Controller
	logger     *slog.Logger
	progress   func(completed, total int)
}

// Option configures Load.
type Option func(*options)

// WithCodec sets the JSON codec for the scene and sidecar.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithResourceController bounds reader fan-out and IO throughput.
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

// WithProgress registers a callback invoked after each feature file is read. Calls
// are serialized but may arrive out of view order.
func WithProgress(fn func(completed, total int)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// Load reads the scene, checks the descriptor sidecar and reads every view's
// descriptors. Batch i belongs to scene.Views[i]. Any unreadable file fails the
// whole load.
func Load(ctx context.Context, scenePath, featDir string, optFns ...Option) (*Scene, []descriptor.Batch, error) {
	o := options{
		codec:  codec.Default,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		fn(&o)
	}

	scene, err := ReadScene(scenePath, o.codec)
	if err != nil {
		return nil, nil, err
	}
	format, err := ReadRegionsType(featDir, o.codec)
	if err != nil {
		return nil, nil, err
	}

	batches := make([]descriptor.Batch, len(scene.Views))
	total := len(scene.Views)
	var done atomic.Int64
	progress := make(chan int, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.controller.Workers())
	for i, v := range scene.Views {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(featDir, v.Stem()+DescExt)
			b, err := ReadDescriptors(gctx, path, format, o.controller)
			if err != nil {
				return err
			}
			batches[i] = b
			progress <- int(done.Add(1))
			return nil
		})
	}

	errc := make(chan error, 1)
	go func() {
		errc <- g.Wait()
		close(progress)
	}()
	for n := range progress {
		if o.progress != nil {
			o.progress(n, total)
		}
	}
	if err := <-errc; err != nil {
		return nil, nil, err
	}

	var keys int
	for _, b := range batches {
		keys += b.Len()
	}
	o.logger.Info("scene loaded",
		"scene", scenePath,
		"views", total,
		"descriptors", keys,
		"format", format.String(),
	)
	return scene, batches, nil
}

// ReadDescriptors reads one binary descriptor file: a little-endian uint64 count
// followed by count descriptors of format.Dim() bytes.
func ReadDescriptors(ctx context.Context, path string, format descriptor.Format, rc *resource.Controller) (descriptor.Batch, error) {
	dim := format.Dim()
	if dim == 0 {
		return descriptor.Batch{}, fmt.Errorf("%w: %v", descriptor.ErrUnsupportedFormat, format)
	}

	f, err := os.Open(path)
	if err != nil {
		return descriptor.Batch{}, fmt.Errorf("%w: %w", ErrUnreadableInput, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return descriptor.Batch{}, fmt.Errorf("%w: %w", ErrUnreadableInput, err)
	}

	r := bufio.NewReader(resource.NewRateLimitedReader(ctx, f, rc))

	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return descriptor.Batch{}, fmt.Errorf("%w: %s: missing descriptor count: %w", ErrUnreadableInput, path, err)
	}
	count := binary.LittleEndian.Uint64(hdr[:])
	want := uint64(fi.Size()) - 8
	if count > want/uint64(dim) || count*uint64(dim) != want {
		return descriptor.Batch{}, fmt.Errorf("%w: %s: %d descriptors need %d bytes, file has %d",
			ErrUnreadableInput, path, count, count*uint64(dim), want)
	}

	size, err := conv.Uint64ToInt(count * uint64(dim))
	if err != nil {
		return descriptor.Batch{}, fmt.Errorf("%w: %s: %w", ErrUnreadableInput, path, err)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return descriptor.Batch{}, fmt.Errorf("%w: %s: %w", ErrUnreadableInput, path, err)
	}
	return descriptor.Batch{Format: format, Dim: dim, Data: data}, nil
}

// WriteDescriptors writes a batch in the binary descriptor layout ReadDescriptors
// reads.
func WriteDescriptors(path string, b descriptor.Batch) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	var hdr [8]byte
	binary.LittleEndian.PutUint64(hdr[:], uint64(b.Len()))
	if _, err := w.Write(hdr[:]); err != nil {
		_ = f.Close()
		return err
	}
	if _, err := w.Write(b.Data[:b.Len()*b.Dim]); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
