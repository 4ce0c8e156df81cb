package floradata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	assert.Equal(t, "Pink Primrose", Title("pink primrose"))
	assert.Equal(t, "Colt's Foot", Title("colt's foot"))
	assert.Equal(t, "Rose", Title("  rose "))
}

func TestQueryTerm(t *testing.T) {
	tables := New(map[string]string{"pink primrose": "Primula_vulgaris"}, nil)

	assert.Equal(t, "Primula_vulgaris", tables.QueryTerm("Pink Primrose"))
	assert.Equal(t, "english_marigold", tables.QueryTerm("English Marigold"))
}

func TestSearchTerm(t *testing.T) {
	tables := New(map[string]string{"pink primrose": "Primula_vulgaris"}, nil)

	assert.Equal(t, "primula vulgaris", tables.SearchTerm("pink primrose"))
	assert.Equal(t, "english marigold", tables.SearchTerm("English Marigold"))
}
