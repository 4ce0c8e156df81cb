package infocache

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petalnet/petalnet-go/internal/logger"
)

const cachePath = "data/flower_info_cache.json"

func newTestCache(t *testing.T, fs afero.Fs) *Cache {
	t.Helper()
	return New(fs, cachePath, WithLogger(logger.NewDiscardLogger()))
}

func readFile(t *testing.T, fs afero.Fs) map[string]string {
	t.Helper()
	data, err := afero.ReadFile(fs, cachePath)
	require.NoError(t, err)
	var out map[string]string
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestPutLowercasesAndPersists(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCache(t, fs)

	c.Put("Rose", "Roses are woody perennials.")

	text, ok := c.Get("rose")
	require.True(t, ok)
	assert.Equal(t, "Roses are woody perennials.", text)

	text, ok = c.Get("ROSE")
	require.True(t, ok)
	assert.Equal(t, "Roses are woody perennials.", text)

	assert.Equal(t, map[string]string{"rose": "Roses are woody perennials."}, readFile(t, fs))

	exists, err := afero.Exists(fs, cachePath+".tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPutOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCache(t, fs)

	c.Put("lotus", "first")
	c.Put("Lotus", "second")

	text, _ := c.Get("lotus")
	assert.Equal(t, "second", text)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "second", readFile(t, fs)["lotus"])
}

func TestLoadRoundTripsThroughFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	first := newTestCache(t, fs)
	first.Put("daffodil", "Narcissus is a genus of spring flowering perennials.")
	first.Put("azalea", "Azaleas are flowering shrubs.")

	second := newTestCache(t, fs)
	loaded := second.Load()

	assert.Len(t, loaded, 2)
	text, ok := second.Get("Daffodil")
	require.True(t, ok)
	assert.Equal(t, "Narcissus is a genus of spring flowering perennials.", text)
}

func TestLoadIsBestEffort(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		c := newTestCache(t, afero.NewMemMapFs())
		assert.Empty(t, c.Load())
		assert.Zero(t, c.Len())
	})

	t.Run("corrupt file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, cachePath, []byte("{not json"), 0o644))
		c := newTestCache(t, fs)
		assert.Empty(t, c.Load())
	})

	t.Run("mixed case keys are normalized", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, cachePath, []byte(`{"Sweet Pea": "fragrant"}`), 0o644))
		c := newTestCache(t, fs)
		c.Load()
		text, ok := c.Get("sweet pea")
		require.True(t, ok)
		assert.Equal(t, "fragrant", text)
	})
}

func TestSaveFailureIsSwallowed(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	c := newTestCache(t, fs)

	assert.NotPanics(t, func() {
		c.Put("rose", "text")
		c.Save(map[string]string{"rose": "text"})
	})

	text, ok := c.Get("rose")
	require.True(t, ok, "memory overlay survives a failed write")
	assert.Equal(t, "text", text)
	require.Error(t, c.Flush())
}

func TestConcurrentPutsKeepEveryEntry(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCache(t, fs)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Put(fmt.Sprintf("flower %d", i), fmt.Sprintf("text %d", i))
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, c.Len())
	assert.Len(t, readFile(t, fs), 20)
}
