// Package wikipedia resolves a short description for a flower species.
//
// Resolution walks an ordered list of strategies and stops at the first one
// that answers: the description cache, the Wikipedia page summary API, the
// bundled fallback table and finally a generic placeholder. Whatever answers,
// except the cache itself, is written back to the cache, so a name is looked
// up remotely at most once.
package wikipedia

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/petalnet/petalnet-go/internal/floradata"
	"github.com/petalnet/petalnet-go/internal/httpclient"
	"github.com/petalnet/petalnet-go/internal/logger"
	"github.com/petalnet/petalnet-go/internal/observability/metrics"
)

const (
	// DefaultEndpoint is the REST page summary endpoint; the page title is appended.
	DefaultEndpoint = "https://en.wikipedia.org/api/rest_v1/page/summary/"

	DefaultTimeout     = 5 * time.Second
	DefaultMaxAttempts = 3

	userAgentName    = "PetalNet-Go"
	userAgentLibrary = "Go-HTTP-Client"
)

// Cache is the description store the service reads and writes.
type Cache interface {
	Get(name string) (string, bool)
	Put(name, text string)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Strategy is one step of the resolution chain. Lookup receives the
// lowercased display name and reports whether it produced a description.
type Strategy struct {
	Name   string
	Lookup func(ctx context.Context, name string) (string, bool)
}

// Config tunes the summary lookups.
type Config struct {
	Endpoint    string
	Timeout     time.Duration // per attempt
	MaxAttempts int
}

// Service is the description resolver. Safe for concurrent use.
type Service struct {
	client  *httpclient.Client
	cache   Cache
	tables  *floradata.Tables
	log     logger.Logger
	metrics *metrics.EnrichmentMetrics
	sleep   Sleeper
	observe func(State, int)

	endpoint    string
	timeout     time.Duration
	maxAttempts int

	strategies []Strategy
	inflight   singleflight.Group
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithMetrics records lookup outcomes and retries
func WithMetrics(m *metrics.EnrichmentMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSleeper replaces the real-time sleeper, mainly for tests
func WithSleeper(sleep Sleeper) Option {
	return func(s *Service) { s.sleep = sleep }
}

// WithStateObserver is called on every retry state transition
func WithStateObserver(fn func(state State, attempt int)) Option {
	return func(s *Service) { s.observe = fn }
}

// New builds the service and its default strategy chain.
func New(client *httpclient.Client, cache Cache, tables *floradata.Tables, cfg Config, opts ...Option) *Service {
	s := &Service{
		client:      client,
		cache:       cache,
		tables:      tables,
		endpoint:    cfg.Endpoint,
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		sleep:       contextSleep,
	}
	if s.endpoint == "" {
		s.endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(s.endpoint, "/") {
		s.endpoint += "/"
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Global().Module("wikipedia")
	}

	s.strategies = []Strategy{
		{Name: metrics.TextOutcomeCache, Lookup: s.fromCache},
		{Name: metrics.TextOutcomeAPI, Lookup: s.fromSummaryAPI},
		{Name: metrics.TextOutcomeFallback, Lookup: s.fromFallbackTable},
		{Name: metrics.TextOutcomePlaceholder, Lookup: placeholder},
	}
	return s
}

// BuildUserAgent follows the Wikimedia User-Agent policy:
// <client>/<version> (<contact>) <library>/<version>
func BuildUserAgent(version, contact string) string {
	if version == "" {
		version = "dev"
	}
	if contact == "" {
		contact = "https://github.com/petalnet/petalnet-go"
	}
	return fmt.Sprintf("%s/%s (%s) %s/%s", userAgentName, version, contact, userAgentLibrary, runtime.Version())
}

// Resolve returns a description for displayName. It never fails: the last
// strategy always answers. Concurrent calls for the same name share one lookup.
//
// The shared lookup is detached from the caller's cancellation so one caller
// giving up neither poisons the cache nor the answer other callers receive.
// A caller whose ctx is done gets an uncached answer right away.
func (s *Service) Resolve(ctx context.Context, displayName string) string {
	name := strings.ToLower(strings.TrimSpace(displayName))
	if ctx.Err() != nil {
		return s.abandoned(name)
	}

	ch := s.inflight.DoChan(name, func() (any, error) {
		return s.resolve(context.WithoutCancel(ctx), name), nil
	})
	select {
	case res := <-ch:
		text, _ := res.Val.(string)
		return text
	case <-ctx.Done():
		return s.abandoned(name)
	}
}

// abandoned answers a caller that stopped waiting. Nothing is written to the cache.
func (s *Service) abandoned(name string) string {
	s.log.Debug("description lookup abandoned by caller", logger.String("name", name))
	if text, ok := s.cache.Get(name); ok {
		return text
	}
	if text, ok := s.tables.Fallback(name); ok {
		return text
	}
	return placeholderText(name)
}

func (s *Service) resolve(ctx context.Context, name string) string {
	for _, strategy := range s.strategies {
		text, ok := strategy.Lookup(ctx, name)
		if !ok {
			continue
		}
		s.metrics.RecordTextLookup(strategy.Name)
		if strategy.Name != metrics.TextOutcomeCache {
			s.cache.Put(name, text)
		}
		s.log.Debug("description resolved",
			logger.String("name", name),
			logger.String("source", strategy.Name))
		return text
	}
	// Unreachable while placeholder terminates the chain.
	return placeholderText(name)
}

func (s *Service) fromCache(_ context.Context, name string) (string, bool) {
	return s.cache.Get(name)
}

func (s *Service) fromFallbackTable(_ context.Context, name string) (string, bool) {
	return s.tables.Fallback(name)
}

func placeholder(_ context.Context, name string) (string, bool) {
	return placeholderText(name), true
}

// placeholderText is the generic "not found" description.
func placeholderText(name string) string {
	return fmt.Sprintf("No information available for %s.", floradata.Title(name))
}

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
