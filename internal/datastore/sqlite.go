// Package datastore keeps the identification history in SQLite.
package datastore

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/logger"
	"github.com/petalnet/petalnet-go/internal/observability/metrics"
)

const (
	sinkName           = "sqlite"
	slowQueryThreshold = 200 * time.Millisecond
	DefaultRecentLimit = 10
	maxRecentLimit     = 500
)

// Interface is the history store used by the web layer.
type Interface interface {
	Open() error
	Save(ctx context.Context, rec *Identification) error
	Recent(ctx context.Context, limit int) ([]Identification, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

// SQLiteStore implements Interface on a SQLite file.
type SQLiteStore struct {
	DB      *gorm.DB
	path    string
	log     logger.Logger
	metrics *metrics.HistoryMetrics
}

// Option configures a SQLiteStore
type Option func(*SQLiteStore)

// WithLogger sets the logger, also used for GORM statements
func WithLogger(log logger.Logger) Option {
	return func(s *SQLiteStore) { s.log = log }
}

// WithMetrics records store operations
func WithMetrics(m *metrics.HistoryMetrics) Option {
	return func(s *SQLiteStore) { s.metrics = m }
}

// New creates a store for the database file at path. Call Open before use.
func New(path string, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{path: path}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Global().Module("datastore")
	}
	return s
}

// Open connects to the database, creating the file and its directory if
// needed, and migrates the schema.
func (s *SQLiteStore) Open() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.FileError(err, dir)
		}
	}

	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{
		Logger: newQueryLogger(s.log, slowQueryThreshold),
	})
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open").
			Context("path", s.path).
			Build()
	}

	if err := db.AutoMigrate(&Identification{}, &Result{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Context("path", s.path).
			Build()
	}

	s.DB = db
	s.log.Info("identification history opened", logger.String("path", s.path))
	return nil
}

// Save inserts rec together with its results.
func (s *SQLiteStore) Save(ctx context.Context, rec *Identification) error {
	if s.DB == nil {
		return errNotOpen("save")
	}
	err := s.DB.WithContext(ctx).Create(rec).Error
	s.metrics.RecordOperation(sinkName, "save", err)
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save").
			Context("top_label", rec.TopLabel).
			Build()
	}
	return nil
}

// Recent returns up to limit identifications, newest first, with their
// results in rank order.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Identification, error) {
	if s.DB == nil {
		return nil, errNotOpen("recent")
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	limit = min(limit, maxRecentLimit)

	var out []Identification
	err := s.DB.WithContext(ctx).
		Preload("Results", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	s.metrics.RecordOperation(sinkName, "recent", err)
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "recent").
			Build()
	}
	return out, nil
}

// Count returns the number of stored identifications.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	if s.DB == nil {
		return 0, errNotOpen("count")
	}
	var n int64
	if err := s.DB.WithContext(ctx).Model(&Identification{}).Count(&n).Error; err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "count").
			Build()
	}
	return n, nil
}

// Close closes the underlying connection pool.
func (s *SQLiteStore) Close() error {
	if s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	s.DB = nil
	return sqlDB.Close()
}

func errNotOpen(op string) error {
	return errors.Newf("database connection is not initialized").
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", op).
		Build()
}
