package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hupe1980/vocabmatch/codec"
	"github.com/hupe1980/vocabmatch/descriptor"
	"github.com/hupe1980/vocabmatch/resource"
	"github.com/hupe1980/vocabmatch/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sidecarSIFT = `{
  "image_describer": {"polymorphic_id": 2147483649, "polymorphic_name": "SIFT_Image_describer"},
  "regions_type": {"polymorphic_id": 2147483650, "polymorphic_name": "SIFT_Regions", "ptr_wrapper": {"id": 2147483649, "data": {}}}
}`

type fixture struct {
	dir       string
	scenePath string
	featDir   string
}

// newFixture writes a scene whose views are listed in reverse key order, a SIFT
// sidecar and one descriptor file per view with counts[i] descriptors filled with
// byte(i+1).
func newFixture(t *testing.T, counts []int) fixture {
	t.Helper()
	dir := t.TempDir()
	featDir := filepath.Join(dir, "matches")
	require.NoError(t, os.MkdirAll(featDir, 0o755))

	views := ""
	for i := len(counts) - 1; i >= 0; i-- {
		if views != "" {
			views += ","
		}
		views += fmt.Sprintf(`{"key": %d, "value": {"polymorphic_id": 1073741824, "ptr_wrapper": {"id": %d, "data": {"local_path": "", "filename": "img_%02d.JPG", "width": 640, "height": 480, "id_view": %d}}}}`,
			i, 2147483649+i, i, i)

		data := make([]byte, counts[i]*descriptor.Dim)
		for j := range data {
			data[j] = byte(i + 1)
		}
		require.NoError(t, WriteDescriptors(filepath.Join(featDir, fmt.Sprintf("img_%02d.desc", i)), descriptor.NewBatch(data)))
	}
	scene := fmt.Sprintf(`{"sfm_data_version": "0.3", "root_path": "/images", "views": [%s], "intrinsics": [], "extrinsics": []}`, views)
	scenePath := filepath.Join(dir, "sfm_data.json")
	require.NoError(t, os.WriteFile(scenePath, []byte(scene), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(featDir, SidecarName), []byte(sidecarSIFT), 0o644))

	return fixture{dir: dir, scenePath: scenePath, featDir: featDir}
}

func TestLoad(t *testing.T) {
	fx := newFixture(t, []int{3, 0, 5, 1})

	var mu sync.Mutex
	var calls []int
	rc := resource.NewController(resource.Config{MaxWorkers: 2, IOLimitBytesPerSec: 1 << 20})
	scene, batches, err := Load(context.Background(), fx.scenePath, fx.featDir,
		WithResourceController(rc),
		WithCodec(codec.JSON{}),
		WithProgress(func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 4, total)
			calls = append(calls, done)
		}),
	)
	require.NoError(t, err)

	assert.Equal(t, "0.3", scene.Version)
	assert.Equal(t, "/images", scene.RootPath)
	require.Len(t, scene.Views, 4)
	for i, v := range scene.Views {
		assert.Equal(t, uint32(i), v.Key)
		assert.Equal(t, fmt.Sprintf("img_%02d", i), v.Stem())
	}

	require.Len(t, batches, 4)
	for i, want := range []int{3, 0, 5, 1} {
		assert.Equal(t, want, batches[i].Len())
		assert.Equal(t, descriptor.FormatSIFT, batches[i].Format)
		if want > 0 {
			assert.Equal(t, byte(i+1), batches[i].Descriptor(want - 1)[0])
		}
	}
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, calls)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing scene", func(t *testing.T) {
		fx := newFixture(t, []int{1})
		_, _, err := Load(context.Background(), filepath.Join(fx.dir, "nope.json"), fx.featDir)
		assert.ErrorIs(t, err, ErrUnreadableInput)
	})

	t.Run("corrupt scene", func(t *testing.T) {
		fx := newFixture(t, []int{1})
		require.NoError(t, os.WriteFile(fx.scenePath, []byte(`{"views": [`), 0o644))
		_, _, err := Load(context.Background(), fx.scenePath, fx.featDir)
		assert.ErrorIs(t, err, ErrUnreadableInput)
	})

	t.Run("missing sidecar", func(t *testing.T) {
		fx := newFixture(t, []int{1})
		require.NoError(t, os.Remove(filepath.Join(fx.featDir, SidecarName)))
		_, _, err := Load(context.Background(), fx.scenePath, fx.featDir)
		assert.ErrorIs(t, err, ErrUnreadableInput)
	})

	t.Run("unsupported format", func(t *testing.T) {
		fx := newFixture(t, []int{1})
		sidecar := `{"regions_type": {"polymorphic_name": "AKAZE_Binary_Regions"}}`
		require.NoError(t, os.WriteFile(filepath.Join(fx.featDir, SidecarName), []byte(sidecar), 0o644))
		_, _, err := Load(context.Background(), fx.scenePath, fx.featDir)
		assert.ErrorIs(t, err, descriptor.ErrUnsupportedFormat)
	})

	t.Run("missing descriptor file", func(t *testing.T) {
		fx := newFixture(t, []int{1, 2})
		require.NoError(t, os.Remove(filepath.Join(fx.featDir, "img_01.desc")))
		_, _, err := Load(context.Background(), fx.scenePath, fx.featDir)
		assert.ErrorIs(t, err, ErrUnreadableInput)
	})

	t.Run("truncated descriptor file", func(t *testing.T) {
		fx := newFixture(t, []int{2})
		path := filepath.Join(fx.featDir, "img_00.desc")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data[:len(data)-10], 0o644))

		_, _, err = Load(context.Background(), fx.scenePath, fx.featDir)
		assert.ErrorIs(t, err, ErrUnreadableInput)
	})

	t.Run("canceled", func(t *testing.T) {
		fx := newFixture(t, []int{1, 1})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := Load(ctx, fx.scenePath, fx.featDir)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestReadScene_DuplicateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sfm_data.json")
	scene := `{"views": [
		{"key": 1, "value": {"ptr_wrapper": {"data": {"filename": "a.jpg"}}}},
		{"key": 1, "value": {"ptr_wrapper": {"data": {"filename": "b.jpg"}}}}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(scene), 0o644))

	_, err := ReadScene(path, codec.Default)
	assert.ErrorIs(t, err, ErrUnreadableInput)
}

func TestReadDescriptors_RoundTrip(t *testing.T) {
	rng := testutil.NewRNG(1)
	b := descriptor.NewBatch(rng.Descriptors(7, descriptor.Dim))
	path := filepath.Join(t.TempDir(), "x.desc")
	require.NoError(t, WriteDescriptors(path, b))

	got, err := ReadDescriptors(context.Background(), path, descriptor.FormatSIFT, nil)
	require.NoError(t, err)
	assert.Equal(t, b.Data, got.Data)

	_, err = ReadDescriptors(context.Background(), path, descriptor.FormatUnknown, nil)
	assert.ErrorIs(t, err, descriptor.ErrUnsupportedFormat)
}
