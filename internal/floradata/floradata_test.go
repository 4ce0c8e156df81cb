package floradata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTablesParse(t *testing.T) {
	tables, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 102, tables.SynonymCount())

	title, ok := tables.Canonical("pink primrose")
	require.True(t, ok)
	assert.Equal(t, "Primula_vulgaris", title)

	title, ok = tables.Canonical("Colt's Foot")
	require.True(t, ok)
	assert.Equal(t, "Tussilago_farfara", title)

	_, ok = tables.Canonical("triffid")
	assert.False(t, ok)
}

func TestFallbackTexts(t *testing.T) {
	tables := MustDefault()

	for _, name := range []string{"siam tulip", "monkshood", "bolero deep blue"} {
		text, ok := tables.Fallback(name)
		require.True(t, ok, name)
		assert.NotContains(t, text, "\n", "folded scalars must join into one paragraph")
	}

	text, _ := tables.Fallback("monkshood")
	assert.True(t, strings.HasPrefix(text, "Aconitum, also known as monkshood or wolfsbane"))

	_, ok := tables.Fallback("rose")
	assert.False(t, ok)
}

func TestNilTablesAreEmpty(t *testing.T) {
	var tables *Tables
	_, ok := tables.Canonical("rose")
	assert.False(t, ok)
	_, ok = tables.Fallback("rose")
	assert.False(t, ok)
	assert.Zero(t, tables.SynonymCount())
}
