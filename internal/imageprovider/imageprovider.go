// Package imageprovider finds representative flower photos through the
// Unsplash search API.
//
// Two policies coexist on purpose. The result page always shows a full strip
// of related photos, so ResolveRelated pads with deterministic placeholder
// URLs. The catalog renders a "no image" tile instead, so ResolveForCatalog
// returns an empty slice on any failure.
package imageprovider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/petalnet/petalnet-go/internal/floradata"
	"github.com/petalnet/petalnet-go/internal/httpclient"
	"github.com/petalnet/petalnet-go/internal/logger"
	"github.com/petalnet/petalnet-go/internal/observability/metrics"
)

const (
	// DefaultEndpoint is the Unsplash photo search endpoint.
	DefaultEndpoint = "https://api.unsplash.com/search/photos"

	placeholderBase     = "https://placehold.co/150x150/50C878/FFFFFF"
	sourceFallbackBase  = "https://source.unsplash.com/150x150/"
	defaultTimeout      = 5 * time.Second
	defaultCatalogTTL   = 24 * time.Hour
	negativeCatalogTTL  = 10 * time.Minute
	defaultRateLimit    = 2.0
	catalogQuerySuffix  = " flower"
	searchKindRelated   = "related"
	searchKindCatalog   = "catalog"
	catalogMemoCleanupX = 2
)

// Config configures the provider.
type Config struct {
	Endpoint   string
	AccessKey  string        // empty disables searches
	Timeout    time.Duration // per request
	CatalogTTL time.Duration // memo lifetime for catalog results
	RateLimit  float64       // catalog searches per second
}

// Provider resolves photo URLs. Safe for concurrent use.
type Provider struct {
	client    *httpclient.Client
	tables    *floradata.Tables
	log       logger.Logger
	metrics   *metrics.EnrichmentMetrics
	endpoint  string
	accessKey string
	timeout   time.Duration

	catalogTTL  time.Duration
	catalogMemo *cache.Cache
	janitor     *memoJanitor
	closeOnce   sync.Once
	limiter     *rate.Limiter
}

// Option configures a Provider
type Option func(*Provider)

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(p *Provider) { p.log = log }
}

// WithMetrics records search outcomes
func WithMetrics(m *metrics.EnrichmentMetrics) Option {
	return func(p *Provider) { p.metrics = m }
}

// New creates a provider.
func New(client *httpclient.Client, tables *floradata.Tables, cfg Config, opts ...Option) *Provider {
	p := &Provider{
		client:     client,
		tables:     tables,
		endpoint:   cfg.Endpoint,
		accessKey:  strings.TrimSpace(cfg.AccessKey),
		timeout:    cfg.Timeout,
		catalogTTL: cfg.CatalogTTL,
	}
	if p.endpoint == "" {
		p.endpoint = DefaultEndpoint
	}
	if p.timeout <= 0 {
		p.timeout = defaultTimeout
	}
	if p.catalogTTL <= 0 {
		p.catalogTTL = defaultCatalogTTL
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	p.limiter = rate.NewLimiter(rate.Limit(limit), 1)
	// go-cache's own janitor cannot be stopped, so expiry sweeps run here
	p.catalogMemo = cache.New(p.catalogTTL, 0)
	p.janitor = startJanitor(p.catalogMemo, catalogMemoCleanupX*p.catalogTTL)

	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Global().Module("imageprovider")
	}
	return p
}

// Close stops the catalog memo's expiry janitor. The provider must not be used afterwards.
func (p *Provider) Close() {
	p.closeOnce.Do(func() {
		p.catalogMemo.Flush()
		p.janitor.stop()
	})
}

// Configured reports whether a search credential is present.
func (p *Provider) Configured() bool {
	return p.accessKey != ""
}

// ResolveRelated returns exactly count photo URLs for a species.
func (p *Provider) ResolveRelated(ctx context.Context, name string, count int) []string {
	if count <= 0 {
		return []string{}
	}
	if !p.Configured() {
		p.metrics.RecordImageSearch(searchKindRelated, metrics.ImageOutcomeUnconfigured)
		return repeat(PlaceholderURL(name), count)
	}

	query := p.tables.SearchTerm(name)
	found, err := p.search(ctx, query, count)
	switch {
	case err != nil:
		p.metrics.RecordImageSearch(searchKindRelated, metrics.ImageOutcomeError)
		p.log.Warn("related photo search failed, using fallback URLs",
			logger.String("query", query),
			logger.Error(err))
		return repeat(SourceFallbackURL(query), count)
	case len(found) == 0:
		p.metrics.RecordImageSearch(searchKindRelated, metrics.ImageOutcomeEmpty)
		return repeat(SourceFallbackURL(query), count)
	}

	p.metrics.RecordImageSearch(searchKindRelated, metrics.ImageOutcomeOK)
	return padCyclic(found, count)
}

// ResolveForCatalog returns up to count photo URLs for a catalog query.
// Failures and a missing credential yield an empty slice, never placeholders.
// Results are memoized and searches are rate limited so a catalog fan-out
// cannot drain the API quota.
func (p *Provider) ResolveForCatalog(ctx context.Context, query string, count int) []string {
	if count <= 0 || !p.Configured() {
		p.metrics.RecordImageSearch(searchKindCatalog, metrics.ImageOutcomeUnconfigured)
		return []string{}
	}

	key := fmt.Sprintf("%s|%d", strings.ToLower(query), count)
	if v, ok := p.catalogMemo.Get(key); ok {
		p.metrics.RecordImageSearch(searchKindCatalog, metrics.ImageOutcomeMemo)
		urls, _ := v.([]string)
		return append([]string{}, urls...)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		p.metrics.RecordImageSearch(searchKindCatalog, metrics.ImageOutcomeError)
		return []string{}
	}

	found, err := p.search(ctx, query+catalogQuerySuffix, count)
	if err != nil {
		p.metrics.RecordImageSearch(searchKindCatalog, metrics.ImageOutcomeError)
		p.log.Debug("catalog photo search failed",
			logger.String("query", query),
			logger.Error(err))
		// A caller that went away says nothing about the query itself.
		if ctx.Err() == nil {
			// Short negative memo so a failing query is not hammered
			p.catalogMemo.Set(key, []string{}, negativeCatalogTTL)
		}
		return []string{}
	}

	if len(found) > count {
		found = found[:count]
	}
	outcome := metrics.ImageOutcomeOK
	ttl := cache.DefaultExpiration
	if len(found) == 0 {
		outcome = metrics.ImageOutcomeEmpty
		ttl = negativeCatalogTTL
	}
	p.metrics.RecordImageSearch(searchKindCatalog, outcome)
	p.catalogMemo.Set(key, found, ttl)
	return append([]string{}, found...)
}

// memoJanitor periodically drops expired memo entries until stopped.
type memoJanitor struct {
	stopCh chan struct{}
	done   chan struct{}
}

func startJanitor(c *cache.Cache, interval time.Duration) *memoJanitor {
	j := &memoJanitor{stopCh: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.DeleteExpired()
			case <-j.stopCh:
				return
			}
		}
	}()
	return j
}

func (j *memoJanitor) stop() {
	close(j.stopCh)
	<-j.done
}

// PlaceholderURL is the generated tile used when no credential is configured.
func PlaceholderURL(name string) string {
	return placeholderBase + "?text=" + url.QueryEscape(floradata.Title(name))
}

// SourceFallbackURL is the random-photo URL used when a search fails.
func SourceFallbackURL(query string) string {
	return sourceFallbackBase + "?" + url.QueryEscape(query)
}

func repeat(u string, count int) []string {
	out := make([]string, count)
	for i := range out {
		out[i] = u
	}
	return out
}

// padCyclic returns exactly count URLs, repeating found in order when short.
func padCyclic(found []string, count int) []string {
	out := make([]string, count)
	for i := range out {
		out[i] = found[i%len(found)]
	}
	return out
}
