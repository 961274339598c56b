package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hupe1980/vocabmatch/codec"
	"github.com/hupe1980/vocabmatch/descriptor"
)

// ErrUnreadableInput is returned when a scene file, the descriptor sidecar or a
// feature file is missing or cannot be decoded.
var ErrUnreadableInput = errors.New("unreadable input")

// SidecarName is the descriptor-type sidecar file in a feature directory.
const SidecarName = "image_describer.json"

// View is one image of a scene.
type View struct {
	Key      uint32
	Filename string
}

// Stem returns the filename without directory and extension, which names the view's
// feature files.
func (v View) Stem() string {
	base := filepath.Base(v.Filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Scene is the subset of an openMVG sfm_data file the pipeline needs.
type Scene struct {
	Version  string
	RootPath string
	// Views ordered by ascending key.
	Views []View
}

type sfmData struct {
	Version  string `json:"sfm_data_version"`
	RootPath string `json:"root_path"`
	Views    []struct {
		Key   uint32 `json:"key"`
		Value struct {
			PtrWrapper struct {
				Data struct {
					Filename string `json:"filename"`
				} `json:"data"`
			} `json:"ptr_wrapper"`
		} `json:"value"`
	} `json:"views"`
}

type imageDescriber struct {
	RegionsType *struct {
		PolymorphicName string `json:"polymorphic_name"`
	} `json:"regions_type"`
}

// ReadScene decodes the views of an sfm_data.json file.
func ReadScene(path string, c codec.Codec) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: scene %s: %w", ErrUnreadableInput, path, err)
	}
	var raw sfmData
	if err := c.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: scene %s: %w", ErrUnreadableInput, path, err)
	}

	s := &Scene{
		Version:  raw.Version,
		RootPath: raw.RootPath,
		Views:    make([]View, 0, len(raw.Views)),
	}
	seen := make(map[uint32]struct{}, len(raw.Views))
	for _, v := range raw.Views {
		if _, dup := seen[v.Key]; dup {
			return nil, fmt.Errorf("%w: scene %s: duplicate view key %d", ErrUnreadableInput, path, v.Key)
		}
		seen[v.Key] = struct{}{}
		if v.Value.PtrWrapper.Data.Filename == "" {
			return nil, fmt.Errorf("%w: scene %s: view %d has no filename", ErrUnreadableInput, path, v.Key)
		}
		s.Views = append(s.Views, View{Key: v.Key, Filename: v.Value.PtrWrapper.Data.Filename})
	}
	slices.SortFunc(s.Views, func(a, b View) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		default:
			return 0
		}
	})
	return s, nil
}

// ReadRegionsType reads the descriptor sidecar of featDir and maps its regions type to
// a descriptor format.
func ReadRegionsType(featDir string, c codec.Codec) (descriptor.Format, error) {
	path := filepath.Join(featDir, SidecarName)
	data, err := os.ReadFile(path)
	if err != nil {
		return descriptor.FormatUnknown, fmt.Errorf("%w: descriptor sidecar %s: %w", ErrUnreadableInput, path, err)
	}
	var d imageDescriber
	if err := c.Unmarshal(data, &d); err != nil {
		return descriptor.FormatUnknown, fmt.Errorf("%w: descriptor sidecar %s: %w", ErrUnreadableInput, path, err)
	}
	if d.RegionsType == nil {
		return descriptor.FormatUnknown, fmt.Errorf("%w: descriptor sidecar %s: no regions_type", ErrUnreadableInput, path)
	}
	return descriptor.ParseRegionsType(d.RegionsType.PolymorphicName)
}
