// Package infocache persists species descriptions between runs.
//
// The cache is a flat JSON object, lowercase display name -> description,
// loaded fully into memory at startup and rewritten wholesale after every
// Put. Entries are added or overwritten, never removed.
package infocache

import (
	"encoding/json"
	iofs "io/fs"
	"maps"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/logger"
	"github.com/petalnet/petalnet-go/internal/observability/metrics"
)

// Cache is a mutex-guarded description map backed by a JSON file.
type Cache struct {
	fs      afero.Fs
	path    string
	log     logger.Logger
	metrics *metrics.EnrichmentMetrics

	mu      sync.RWMutex
	entries map[string]string

	// writeMu makes persistence single-writer: snapshot and write happen
	// under it so a newer snapshot is never overwritten by an older one.
	writeMu sync.Mutex
}

// Option configures a Cache
type Option func(*Cache)

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// WithMetrics records hits, misses and writes
func WithMetrics(m *metrics.EnrichmentMetrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates an empty cache bound to path on fs. Call Load to read it.
func New(fs afero.Fs, path string, opts ...Option) *Cache {
	c := &Cache{
		fs:      fs,
		path:    path,
		entries: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Global().Module("infocache")
	}
	return c
}

// Open creates the cache on the OS filesystem and loads it.
func Open(path string, opts ...Option) *Cache {
	c := New(afero.NewOsFs(), path, opts...)
	c.Load()
	return c
}

// Load reads the cache file into memory and returns a copy of the loaded
// entries. A missing or corrupt file yields an empty cache; it never fails.
func (c *Cache) Load() map[string]string {
	loaded := c.read()

	c.mu.Lock()
	c.entries = loaded
	c.mu.Unlock()

	c.metrics.RecordCacheWrite(len(loaded), nil)
	return maps.Clone(loaded)
}

func (c *Cache) read() map[string]string {
	data, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		if !isNotExist(err) {
			c.log.Warn("cache file unreadable, starting empty",
				logger.String("path", c.path),
				logger.Error(err))
		}
		return make(map[string]string)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		c.log.Warn("cache file corrupt, starting empty",
			logger.String("path", c.path),
			logger.Error(err))
		return make(map[string]string)
	}

	entries := make(map[string]string, len(raw))
	for k, v := range raw {
		entries[strings.ToLower(k)] = v
	}
	c.log.Debug("cache loaded", logger.String("path", c.path), logger.Int("entries", len(entries)))
	return entries
}

// Save writes entries to the cache file. Failures are logged and swallowed.
func (c *Cache) Save(entries map[string]string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	err := c.write(entries)
	c.metrics.RecordCacheWrite(len(entries), err)
	if err != nil {
		c.log.Error("failed to persist description cache",
			logger.String("path", c.path),
			logger.Int("entries", len(entries)),
			logger.Error(err))
	}
}

// Get returns the cached description for name, case-insensitively.
func (c *Cache) Get(name string) (string, bool) {
	c.mu.RLock()
	text, ok := c.entries[strings.ToLower(name)]
	c.mu.RUnlock()

	c.metrics.RecordCacheLookup(ok)
	return text, ok
}

// Put stores text under the lowercased name and persists the whole cache.
func (c *Cache) Put(name, text string) {
	c.mu.Lock()
	c.entries[strings.ToLower(name)] = text
	c.mu.Unlock()

	c.persist()
}

// Flush persists the current contents. Used on shutdown.
func (c *Cache) Flush() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	snapshot := c.Snapshot()
	err := c.write(snapshot)
	c.metrics.RecordCacheWrite(len(snapshot), err)
	return err
}

// Len returns the number of cached descriptions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of the in-memory entries.
func (c *Cache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.entries)
}

func (c *Cache) persist() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	snapshot := c.Snapshot()
	err := c.write(snapshot)
	c.metrics.RecordCacheWrite(len(snapshot), err)
	if err != nil {
		c.log.Error("failed to persist description cache",
			logger.String("path", c.path),
			logger.Error(err))
	}
}

// write replaces the cache file via temp file and rename. Caller holds writeMu.
func (c *Cache) write(entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.New(err).
			Component("infocache").
			Category(errors.CategoryCache).
			Build()
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return errors.FileError(err, dir)
		}
	}

	tmp := c.path + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, data, 0o644); err != nil {
		return errors.FileError(err, tmp)
	}
	if err := c.fs.Rename(tmp, c.path); err != nil {
		_ = c.fs.Remove(tmp)
		return errors.FileError(err, c.path)
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, iofs.ErrNotExist)
}
