package labels

import (
	"strconv"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/logger"
)

// folderLabels mimics the flower label file: ids "1".."n" mapped to "name-<id>".
func folderLabels(n int) RawLabelMap {
	raw := make(RawLabelMap, n)
	for i := 1; i <= n; i++ {
		id := strconv.Itoa(i)
		raw[id] = "name-" + id
	}
	return raw
}

func TestBuildIsLexicographic(t *testing.T) {
	r := Build(folderLabels(102))

	require.Equal(t, 102, r.Len())
	assert.Equal(t, "name-1", r.Label(0))
	assert.Equal(t, "name-10", r.Label(1))
	assert.Equal(t, "name-100", r.Label(2))
	assert.Equal(t, "name-101", r.Label(3))
	assert.Equal(t, "name-102", r.Label(4))
	assert.Equal(t, "name-11", r.Label(5))
	assert.Equal(t, "name-99", r.Label(101))
}

func TestBuildCoversEveryIndex(t *testing.T) {
	raw := RawLabelMap{"b": "Beta", "a": "Alpha", "c": "Gamma", "aa": "Alpha Alpha"}
	r := Build(raw)

	seen := make(map[string]bool)
	for i := range r.Len() {
		name := r.Label(i)
		assert.NotContains(t, name, "Unknown Flower")
		seen[name] = true
	}
	assert.Len(t, seen, len(raw))
	assert.Equal(t, []string{"Alpha", "Alpha Alpha", "Beta", "Gamma"}, r.Sorted())
}

func TestLabelOutOfRange(t *testing.T) {
	r := Build(RawLabelMap{"1": "pink primrose"})

	assert.Equal(t, "Unknown Flower 7", r.Label(7))
	assert.Equal(t, "Unknown Flower -1", r.Label(-1))
}

func TestNamesAreSortedAndUnique(t *testing.T) {
	r := Build(RawLabelMap{"1": "rose", "2": "daffodil", "3": "rose", "4": "azalea"})

	assert.Equal(t, []string{"azalea", "daffodil", "rose"}, r.Names())
	assert.Equal(t, 4, r.Len())
}

func TestSynthetic(t *testing.T) {
	r := Synthetic(DefaultClassCount)

	assert.True(t, r.Synthetic())
	assert.Equal(t, 102, r.Len())
	assert.Equal(t, "Unknown Flower 0", r.Label(0))
	assert.Equal(t, "Unknown Flower 101", r.Label(101))
}

func TestLoadFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "flower_names.json",
		[]byte(`{"1": "pink primrose", "10": "globe thistle", "2": "hard-leaved pocket orchid"}`), 0o644))

	r, err := LoadFs(fs, "flower_names.json", 3, logger.NewDiscardLogger())
	require.NoError(t, err)
	assert.False(t, r.Synthetic())
	assert.Equal(t, "pink primrose", r.Label(0))
	assert.Equal(t, "globe thistle", r.Label(1))
	assert.Equal(t, "hard-leaved pocket orchid", r.Label(2))
}

func TestLoadFsFallsBackToSynthetic(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "broken.json", []byte(`{"1": `), 0o644))
	require.NoError(t, afero.WriteFile(fs, "empty.json", []byte(`{}`), 0o644))

	for _, path := range []string{"missing.json", "broken.json", "empty.json"} {
		t.Run(path, func(t *testing.T) {
			r, err := LoadFs(fs, path, 0, logger.NewDiscardLogger())
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryLabelLoad))
			require.NotNil(t, r)
			assert.True(t, r.Synthetic())
			assert.Equal(t, DefaultClassCount, r.Len())
		})
	}
}
