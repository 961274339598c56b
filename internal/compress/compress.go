// Package compress implements the block codecs used for persisted vocabulary payloads.
package compress

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None stores the payload as is.
	None Type = 0
	// LZ4 is LZ4 block compression (fast).
	LZ4 Type = 1
	// ZSTD is ZSTD compression (better ratio).
	ZSTD Type = 2
)

// ErrSizeMismatch is returned when a decoded payload does not have the recorded size.
var ErrSizeMismatch = errors.New("decompressed size mismatch")

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Parse parses a compression name.
func Parse(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("unsupported compression: %q", s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// Encode compresses data. LZ4 falls back to returning data unchanged (and None) when
// the input is incompressible, so callers must record the returned type.
func Encode(t Type, data []byte) ([]byte, Type, error) {
	if len(data) == 0 {
		return data, None, nil
	}
	switch t {
	case None:
		return data, None, nil
	case LZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, None, err
		}
		if n == 0 {
			return data, None, nil // Incompressible
		}
		return dst[:n], LZ4, nil
	case ZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, None, err
		}
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, nil), ZSTD, nil
	default:
		return nil, None, fmt.Errorf("unsupported compression: %v", t)
	}
}

// Decode decompresses data into a buffer of rawLen bytes.
func Decode(t Type, data []byte, rawLen int) ([]byte, error) {
	switch t {
	case None:
		if len(data) != rawLen {
			return nil, ErrSizeMismatch
		}
		return data, nil
	case LZ4:
		dst := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(data, dst)
		if err != nil {
			return nil, err
		}
		if n != rawLen {
			return nil, ErrSizeMismatch
		}
		return dst, nil
	case ZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(data, make([]byte, 0, rawLen))
		if err != nil {
			return nil, err
		}
		if len(out) != rawLen {
			return nil, ErrSizeMismatch
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %v", t)
	}
}
