// Package floradata holds the reference tables bundled with the binary: the
// common-name to encyclopedia-title synonyms and the hand-written fallback
// descriptions. Both are read-only after loading.
package floradata

import (
	"embed"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/petalnet/petalnet-go/internal/errors"
)

//go:embed synonyms.yaml fallback.yaml
var dataFiles embed.FS

// Tables is an immutable view over the bundled reference data.
type Tables struct {
	synonyms map[string]string
	fallback map[string]string
}

var (
	defaultTables *Tables
	defaultErr    error
	defaultOnce   sync.Once
)

// Default returns the tables parsed from the embedded files. Parsing happens once.
func Default() (*Tables, error) {
	defaultOnce.Do(func() {
		defaultTables, defaultErr = parse(dataFiles)
	})
	return defaultTables, defaultErr
}

// MustDefault is Default for program initialization; the embedded files are
// covered by tests so a failure here is a build defect.
func MustDefault() *Tables {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// New builds tables from explicit maps. Keys are lowercased.
func New(synonyms, fallback map[string]string) *Tables {
	return &Tables{
		synonyms: lowerKeys(synonyms),
		fallback: lowerKeys(fallback),
	}
}

func parse(fsys embed.FS) (*Tables, error) {
	synonyms, err := readTable(fsys, "synonyms.yaml")
	if err != nil {
		return nil, err
	}
	fallback, err := readTable(fsys, "fallback.yaml")
	if err != nil {
		return nil, err
	}
	return New(synonyms, fallback), nil
}

func readTable(fsys embed.FS, name string) (map[string]string, error) {
	data, err := fsys.ReadFile(name)
	if err != nil {
		return nil, errors.New(err).
			Component("floradata").
			Category(errors.CategoryFileIO).
			Context("file", name).
			Build()
	}
	table := make(map[string]string)
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, errors.New(err).
			Component("floradata").
			Category(errors.CategoryValidation).
			Context("file", name).
			Build()
	}
	return table, nil
}

// Canonical returns the encyclopedia title for a lowercase common name.
func (t *Tables) Canonical(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t.synonyms[strings.ToLower(name)]
	return v, ok
}

// Fallback returns the hand-written description for a lowercase common name.
func (t *Tables) Fallback(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t.fallback[strings.ToLower(name)]
	return v, ok
}

// SynonymCount reports how many synonyms are loaded.
func (t *Tables) SynonymCount() int {
	if t == nil {
		return 0
	}
	return len(t.synonyms)
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}
