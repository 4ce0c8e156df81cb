// Package labels maps classifier output indices to species display names.
//
// The classifier was trained on one folder per class, and the training
// framework numbered those folders in lexicographic order of their names.
// The label file is keyed by the same folder names ("1", "2", ... "102"), so
// index i belongs to the i-th key in string order: 0 -> "1", 1 -> "10",
// 2 -> "100". Numeric ordering would silently mislabel almost every class.
package labels

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/afero"

	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/logger"
)

// DefaultClassCount is the class count of the bundled flower classifier.
const DefaultClassCount = 102

// RawLabelMap is the label file content: opaque class id -> display name.
type RawLabelMap map[string]string

// Resolver is an immutable index -> display name table.
type Resolver struct {
	byIndex   []string
	names     []string
	synthetic bool
}

// Build derives the index table from raw. Keys are sorted as strings, never
// as numbers, and index i maps to raw[sortedKeys[i]].
func Build(raw RawLabelMap) *Resolver {
	keys := slices.Sorted(maps.Keys(raw))
	byIndex := make([]string, len(keys))
	for i, k := range keys {
		byIndex[i] = raw[k]
	}
	return newResolver(byIndex, false)
}

// Synthetic returns "Unknown Flower <i>" for i in 0..n-1. Used when the label
// file cannot be read so the rest of the service keeps running.
func Synthetic(n int) *Resolver {
	if n < 0 {
		n = 0
	}
	byIndex := make([]string, n)
	for i := range byIndex {
		byIndex[i] = unknownName(i)
	}
	return newResolver(byIndex, true)
}

func newResolver(byIndex []string, synthetic bool) *Resolver {
	names := slices.Clone(byIndex)
	slices.Sort(names)
	names = slices.Compact(names)
	return &Resolver{byIndex: byIndex, names: names, synthetic: synthetic}
}

// Load reads a JSON label file from the OS filesystem. See LoadFs.
func Load(path string, classCount int, log logger.Logger) (*Resolver, error) {
	return LoadFs(afero.NewOsFs(), path, classCount, log)
}

// LoadFs reads a JSON object label file and builds the resolver. When the
// file is missing, malformed or empty the error is logged and returned along
// with a synthetic resolver of classCount entries, so callers always get a
// usable resolver.
func LoadFs(fs afero.Fs, path string, classCount int, log logger.Logger) (*Resolver, error) {
	if log == nil {
		log = logger.Global().Module("labels")
	}
	if classCount <= 0 {
		classCount = DefaultClassCount
	}

	raw, err := readLabelFile(fs, path)
	if err != nil {
		log.Error("label file unusable, falling back to synthetic labels",
			logger.String("path", path),
			logger.Int("class_count", classCount),
			logger.Error(err))
		return Synthetic(classCount), err
	}

	r := Build(raw)
	if r.Len() != classCount {
		log.Warn("label count differs from configured class count",
			logger.String("path", path),
			logger.Int("labels", r.Len()),
			logger.Int("class_count", classCount))
	}
	log.Info("labels loaded", logger.String("path", path), logger.Int("count", r.Len()))
	return r, nil
}

func readLabelFile(fs afero.Fs, path string) (RawLabelMap, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.New(err).
			Component("labels").
			Category(errors.CategoryLabelLoad).
			Context("path", path).
			Build()
	}

	var raw RawLabelMap
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(fmt.Errorf("malformed label file: %w", err)).
			Component("labels").
			Category(errors.CategoryLabelLoad).
			Context("path", path).
			Build()
	}
	if len(raw) == 0 {
		return nil, errors.Newf("label file %s contains no labels", path).
			Component("labels").
			Category(errors.CategoryLabelLoad).
			Context("path", path).
			Build()
	}
	return raw, nil
}

// Label returns the display name for index i, or "Unknown Flower <i>" when
// i is outside the table.
func (r *Resolver) Label(i int) string {
	if r == nil || i < 0 || i >= len(r.byIndex) {
		return unknownName(i)
	}
	return r.byIndex[i]
}

// Len returns the number of classes.
func (r *Resolver) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byIndex)
}

// Names returns the sorted unique display names, used by the catalog.
func (r *Resolver) Names() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.names)
}

// Sorted returns the display names in index order.
func (r *Resolver) Sorted() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.byIndex)
}

// Synthetic reports whether the resolver holds placeholder labels.
func (r *Resolver) Synthetic() bool {
	return r != nil && r.synthetic
}

func unknownName(i int) string {
	return fmt.Sprintf("Unknown Flower %d", i)
}
