package vocabtree

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vocabmatch/distance"
	"github.com/hupe1980/vocabmatch/internal/compress"
	"github.com/hupe1980/vocabmatch/internal/hash"
	"github.com/hupe1980/vocabmatch/internal/mmap"
)

const (
	// FormatVersion is the current on-disk format version.
	FormatVersion = 1

	headerSize = 28

	flagDatabase = 1 << 0
)

var magic = [4]byte{'V', 'T', 'D', 'B'}

// header is the fixed-size prefix of a persisted tree.
//
//	magic[4] version u16 compression u8 flags u8 crc32c u32 payloadLen u64 rawLen u64
type header struct {
	Version     uint16
	Compression compress.Type
	Flags       uint8
	Checksum    uint32
	PayloadLen  uint64
	RawLen      uint64
}

func (h *header) encode() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], magic[:])
	binary.LittleEndian.PutUint16(buf[4:], h.Version)
	buf[6] = byte(h.Compression)
	buf[7] = h.Flags
	binary.LittleEndian.PutUint32(buf[8:], h.Checksum)
	binary.LittleEndian.PutUint64(buf[12:], h.PayloadLen)
	binary.LittleEndian.PutUint64(buf[20:], h.RawLen)
	return buf
}

func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("%w: short header (%d bytes)", ErrMalformed, len(buf))
	}
	if !bytes.Equal(buf[0:4], magic[:]) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrMalformed, buf[0:4])
	}
	h := &header{
		Version:     binary.LittleEndian.Uint16(buf[4:]),
		Compression: compress.Type(buf[6]),
		Flags:       buf[7],
		Checksum:    binary.LittleEndian.Uint32(buf[8:]),
		PayloadLen:  binary.LittleEndian.Uint64(buf[12:]),
		RawLen:      binary.LittleEndian.Uint64(buf[20:]),
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, h.Version)
	}
	return h, nil
}

// Write persists the tree and its database to path. The file is written to
// path+".tmp" first and renamed into place.
func (t *Tree) Write(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := t.WriteTo(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	t.opts.logger.Info("vocabulary tree saved", "path", path, "nodes", t.numNodes, "images", t.NumImages())
	return nil
}

// WriteTo implements io.WriterTo.
func (t *Tree) WriteTo(w io.Writer) (int64, error) {
	if !t.Built() {
		return 0, ErrNotBuilt
	}

	raw, flags, err := t.encodePayload()
	if err != nil {
		return 0, err
	}
	payload, ct, err := compress.Encode(t.opts.compression, raw)
	if err != nil {
		return 0, err
	}

	h := header{
		Version:     FormatVersion,
		Compression: ct,
		Flags:       flags,
		Checksum:    hash.CRC32C(payload),
		PayloadLen:  uint64(len(payload)),
		RawLen:      uint64(len(raw)),
	}

	n, err := w.Write(h.encode())
	written := int64(n)
	if err != nil {
		return written, err
	}
	n, err = w.Write(payload)
	written += int64(n)
	return written, err
}

func (t *Tree) hasDatabase() bool {
	if !t.images.IsEmpty() {
		return true
	}
	for _, inv := range t.invFiles {
		if len(inv) > 0 {
			return true
		}
	}
	return false
}

func (t *Tree) encodePayload() ([]byte, uint8, error) {
	centroids, offsets, childIDs := t.centroids, t.childOffsets, t.childIDs
	if !t.flat {
		centroids, offsets, childIDs = flattenNodes(t.root, t.numNodes, t.dim)
	}

	var flags uint8
	if t.hasDatabase() {
		flags |= flagDatabase
	}

	buf := make([]byte, 0, 16+4*(len(centroids)+len(offsets)+len(childIDs)+len(t.weights)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(t.dim))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(t.numNodes))
	buf = append(buf, byte(t.dist))
	buf = appendFloat32(buf, t.interiorWeight)
	for _, v := range centroids {
		buf = appendFloat32(buf, v)
	}
	for _, v := range offsets {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	for _, v := range childIDs {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	for _, v := range t.weights {
		buf = appendFloat32(buf, v)
	}

	if flags&flagDatabase != 0 {
		for _, inv := range t.invFiles {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(inv)))
			for _, p := range inv {
				buf = binary.LittleEndian.AppendUint32(buf, p.image)
				buf = appendFloat32(buf, p.count)
				buf = appendFloat32(buf, p.value)
			}
		}
		bm, err := t.images.ToBytes()
		if err != nil {
			return nil, 0, fmt.Errorf("encode image set: %w", err)
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(bm)))
		buf = append(buf, bm...)
	}
	return buf, flags, nil
}

func appendFloat32(buf []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
}

// Read replaces the tree and database with the contents of path. The file is
// memory-mapped for decoding and the result is in flattened form.
func (t *Tree) Read(path string) error {
	m, err := mmap.Open(path)
	if err != nil {
		return err
	}
	defer m.Close()
	_ = m.Advise(mmap.AccessSequential)

	if err := t.decode(m.Bytes()); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	t.opts.logger.Info("vocabulary tree loaded", "path", path, "nodes", t.numNodes, "images", t.NumImages())
	return nil
}

// ReadFrom implements io.ReaderFrom.
func (t *Tree) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), err
	}
	return int64(len(data)), t.decode(data)
}

func (t *Tree) decode(data []byte) error {
	h, err := decodeHeader(data)
	if err != nil {
		return err
	}
	payload := data[headerSize:]
	if uint64(len(payload)) != h.PayloadLen {
		return fmt.Errorf("%w: payload is %d bytes, header says %d", ErrMalformed, len(payload), h.PayloadLen)
	}
	if err := hash.Verify(payload, h.Checksum); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if h.RawLen > math.MaxInt32 {
		return fmt.Errorf("%w: raw length %d", ErrMalformed, h.RawLen)
	}
	raw, err := compress.Decode(h.Compression, payload, int(h.RawLen))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	d := &decoder{buf: raw}
	dim := int(d.u32())
	numNodes := int(d.u32())
	dist := distance.Type(d.u8())
	interiorWeight := d.f32()
	if d.err != nil {
		return d.err
	}
	if dim <= 0 || numNodes <= 0 || !dist.Valid() {
		return fmt.Errorf("%w: dimension %d, %d nodes, distance %d", ErrMalformed, dim, numNodes, dist)
	}
	if !d.fits(uint64(numNodes) * uint64(dim+2) * 4) {
		return d.err
	}

	centroids := d.f32s(numNodes * dim)
	offsets := d.u32s(numNodes + 1)
	if d.err != nil {
		return d.err
	}
	if offsets[0] != 0 || !d.fits(uint64(offsets[numNodes])*4) {
		return fmt.Errorf("%w: bad child table", ErrMalformed)
	}
	childIDs := d.u32s(int(offsets[numNodes]))
	weights := d.f32s(numNodes)
	if d.err != nil {
		return d.err
	}
	leaf := make([]bool, numNodes)
	for i := 0; i < numNodes; i++ {
		start, end := offsets[i], offsets[i+1]
		if start > end || end > offsets[numNodes] {
			return fmt.Errorf("%w: bad child offsets at node %d", ErrMalformed, i)
		}
		leaf[i] = start == end
		// Preorder ids: children always come after their parent.
		for _, c := range childIDs[start:end] {
			if int(c) <= i || int(c) >= numNodes {
				return fmt.Errorf("%w: node %d has invalid child %d", ErrMalformed, i, c)
			}
		}
	}

	invFiles := make([][]posting, numNodes)
	images := roaring.New()
	if h.Flags&flagDatabase != 0 {
		for i := range invFiles {
			cnt := d.u32()
			if !d.fits(uint64(cnt) * 12) {
				return d.err
			}
			if cnt == 0 {
				continue
			}
			inv := make([]posting, cnt)
			for j := range inv {
				inv[j] = posting{image: d.u32(), count: d.f32(), value: d.f32()}
			}
			invFiles[i] = inv
		}
		bmLen := d.u32()
		bm := d.bytes(int(bmLen))
		if d.err != nil {
			return d.err
		}
		if err := images.UnmarshalBinary(bm); err != nil {
			return fmt.Errorf("%w: image set: %w", ErrMalformed, err)
		}
	}
	if d.off != len(d.buf) {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(d.buf)-d.off)
	}

	t.reset()
	t.dim = dim
	t.numNodes = numNodes
	t.dist = dist
	t.interiorWeight = interiorWeight
	t.flat = true
	t.centroids = centroids
	t.childOffsets = offsets
	t.childIDs = childIDs
	t.leaf = leaf
	t.weights = weights
	t.invFiles = invFiles
	t.images = images
	return nil
}

// decoder reads little-endian values and records the first short read.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) fits(n uint64) bool {
	if d.err != nil {
		return false
	}
	if n > uint64(len(d.buf)-d.off) {
		d.err = fmt.Errorf("%w: truncated payload at offset %d", ErrMalformed, d.off)
		return false
	}
	return true
}

func (d *decoder) bytes(n int) []byte {
	if !d.fits(uint64(n)) {
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() uint8 {
	b := d.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) u32() uint32 {
	b := d.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) f32() float32 {
	return math.Float32frombits(d.u32())
}

func (d *decoder) u32s(n int) []uint32 {
	if !d.fits(uint64(n) * 4) {
		return nil
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = d.u32()
	}
	return out
}

func (d *decoder) f32s(n int) []float32 {
	if !d.fits(uint64(n) * 4) {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = d.f32()
	}
	return out
}
