// Package codec centralizes JSON decoding of scene descriptions and descriptor
// sidecars.
//
// openMVG scene files can hold tens of thousands of views, so the default codec is
// backed by github.com/goccy/go-json; the standard-library codec stays available for
// portability.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, error) {
	switch name {
	case "json":
		return JSON{}, nil
	case "go-json", "":
		return GoJSON{}, nil
	default:
		return nil, fmt.Errorf("unknown codec: %q", name)
	}
}
