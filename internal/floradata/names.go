package floradata

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title returns name in title case, e.g. "pink primrose" -> "Pink Primrose".
// Casers keep state, so a new one is made per call.
func Title(name string) string {
	return cases.Title(language.English).String(strings.TrimSpace(name))
}

// QueryTerm converts a name into an encyclopedia page title: synonyms first,
// then the lowercased name, with spaces replaced by underscores.
func (t *Tables) QueryTerm(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := t.Canonical(lower); ok {
		lower = canonical
	}
	return strings.ReplaceAll(lower, " ", "_")
}

// SearchTerm converts a name into a photo search query: a synonym hit becomes
// the lowercased canonical name with underscores turned back into spaces.
func (t *Tables) SearchTerm(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := t.Canonical(lower); ok {
		return strings.ReplaceAll(strings.ToLower(canonical), "_", " ")
	}
	return lower
}
