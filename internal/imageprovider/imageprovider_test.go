package imageprovider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petalnet/petalnet-go/internal/floradata"
	"github.com/petalnet/petalnet-go/internal/httpclient"
	"github.com/petalnet/petalnet-go/internal/logger"
)

// searchRecorder answers photo searches and remembers the queries it saw.
type searchRecorder struct {
	mu      sync.Mutex
	queries []string
	perPage []string
	results int
	status  int
}

func (s *searchRecorder) responder(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := req.URL.Query()
	s.queries = append(s.queries, q.Get("query"))
	s.perPage = append(s.perPage, q.Get("per_page"))

	if s.status != 0 && s.status != http.StatusOK {
		return httpmock.NewStringResponse(s.status, `{"errors": ["nope"]}`), nil
	}

	results := make([]map[string]any, s.results)
	for i := range results {
		results[i] = map[string]any{
			"id":   fmt.Sprintf("id%d", i),
			"urls": map[string]string{"small": fmt.Sprintf("https://images.example/%s/%d.jpg", strings.ReplaceAll(q.Get("query"), " ", "-"), i)},
		}
	}
	return httpmock.NewJsonResponse(http.StatusOK, map[string]any{"total": s.results, "results": results})
}

func (s *searchRecorder) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func newTestProvider(t *testing.T, accessKey string, rec *searchRecorder) (*Provider, *httpmock.MockTransport) {
	t.Helper()
	mock := httpmock.NewMockTransport()
	if rec != nil {
		mock.RegisterResponder(http.MethodGet, DefaultEndpoint, rec.responder)
	}
	client := httpclient.New(&httpclient.Config{Transport: mock})
	t.Cleanup(client.Close)

	p := New(client, floradata.MustDefault(), Config{AccessKey: accessKey, RateLimit: 1000},
		WithLogger(logger.NewDiscardLogger()))
	t.Cleanup(p.Close)
	return p, mock
}

func TestResolveRelatedWithoutCredential(t *testing.T) {
	p, mock := newTestProvider(t, "", nil)

	urls := p.ResolveRelated(t.Context(), "pink primrose", 4)

	require.Len(t, urls, 4)
	for _, u := range urls {
		assert.Equal(t, "https://placehold.co/150x150/50C878/FFFFFF?text=Pink+Primrose", u)
	}
	assert.Zero(t, mock.GetTotalCallCount())
}

func TestResolveRelatedSearchesCanonicalName(t *testing.T) {
	rec := &searchRecorder{results: 4}
	p, _ := newTestProvider(t, "key", rec)

	urls := p.ResolveRelated(t.Context(), "Pink Primrose", 4)

	require.Len(t, urls, 4)
	assert.Equal(t, "https://images.example/primula-vulgaris/0.jpg", urls[0])
	assert.Equal(t, "https://images.example/primula-vulgaris/3.jpg", urls[3])
	assert.Equal(t, []string{"primula vulgaris"}, rec.seen())
	assert.Equal(t, []string{"4"}, rec.perPage)
}

func TestResolveRelatedPadsPartialResults(t *testing.T) {
	rec := &searchRecorder{results: 2}
	p, _ := newTestProvider(t, "key", rec)

	urls := p.ResolveRelated(t.Context(), "spear mint", 5)

	require.Len(t, urls, 5)
	assert.Equal(t, []string{
		"https://images.example/spear-mint/0.jpg",
		"https://images.example/spear-mint/1.jpg",
		"https://images.example/spear-mint/0.jpg",
		"https://images.example/spear-mint/1.jpg",
		"https://images.example/spear-mint/0.jpg",
	}, urls)
}

func TestResolveRelatedFallsBackOnFailure(t *testing.T) {
	for name, rec := range map[string]*searchRecorder{
		"server error": {status: http.StatusInternalServerError},
		"no results":   {results: 0},
	} {
		t.Run(name, func(t *testing.T) {
			p, _ := newTestProvider(t, "key", rec)

			urls := p.ResolveRelated(t.Context(), "rose", 4)

			require.Len(t, urls, 4)
			for _, u := range urls {
				assert.Equal(t, "https://source.unsplash.com/150x150/?rosa", u)
			}
		})
	}
}

func TestResolveRelatedTransportError(t *testing.T) {
	p, mock := newTestProvider(t, "key", nil)
	mock.RegisterNoResponder(httpmock.NewErrorResponder(assert.AnError))

	urls := p.ResolveRelated(t.Context(), "lotus", 3)

	assert.Equal(t, []string{
		"https://source.unsplash.com/150x150/?nelumbo+nucifera",
		"https://source.unsplash.com/150x150/?nelumbo+nucifera",
		"https://source.unsplash.com/150x150/?nelumbo+nucifera",
	}, urls)
}

func TestResolveRelatedZeroCount(t *testing.T) {
	p, _ := newTestProvider(t, "", nil)
	assert.Empty(t, p.ResolveRelated(t.Context(), "rose", 0))
}

func TestResolveForCatalog(t *testing.T) {
	t.Run("appends flower and truncates", func(t *testing.T) {
		rec := &searchRecorder{results: 3}
		p, _ := newTestProvider(t, "key", rec)

		urls := p.ResolveForCatalog(t.Context(), "rose", 1)

		assert.Equal(t, []string{"https://images.example/rose-flower/0.jpg"}, urls)
		assert.Equal(t, []string{"rose flower"}, rec.seen())
	})

	t.Run("memoizes results", func(t *testing.T) {
		rec := &searchRecorder{results: 1}
		p, mock := newTestProvider(t, "key", rec)

		first := p.ResolveForCatalog(t.Context(), "Daffodil", 1)
		second := p.ResolveForCatalog(t.Context(), "daffodil", 1)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, mock.GetTotalCallCount())
	})

	t.Run("failure yields empty, never placeholders", func(t *testing.T) {
		rec := &searchRecorder{status: http.StatusTooManyRequests}
		p, _ := newTestProvider(t, "key", rec)

		urls := p.ResolveForCatalog(t.Context(), "rose", 2)
		assert.NotNil(t, urls)
		assert.Empty(t, urls)
	})

	t.Run("live failure is memoized briefly", func(t *testing.T) {
		rec := &searchRecorder{status: http.StatusServiceUnavailable}
		p, mock := newTestProvider(t, "key", rec)

		assert.Empty(t, p.ResolveForCatalog(t.Context(), "rose", 1))
		assert.Empty(t, p.ResolveForCatalog(t.Context(), "rose", 1))
		assert.Equal(t, 1, mock.GetTotalCallCount())
	})

	t.Run("cancelled caller is not memoized", func(t *testing.T) {
		rec := &searchRecorder{results: 1}
		p, mock := newTestProvider(t, "key", rec)

		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()
		var calls atomic.Int32
		mock.RegisterResponder(http.MethodGet, DefaultEndpoint, func(req *http.Request) (*http.Response, error) {
			if calls.Add(1) == 1 {
				cancel()
				return nil, req.Context().Err()
			}
			return rec.responder(req)
		})

		assert.Empty(t, p.ResolveForCatalog(ctx, "lotus", 1))

		urls := p.ResolveForCatalog(t.Context(), "lotus", 1)
		assert.Equal(t, []string{"https://images.example/lotus-flower/0.jpg"}, urls)
		assert.Equal(t, 2, mock.GetTotalCallCount())
	})

	t.Run("missing credential yields empty", func(t *testing.T) {
		p, mock := newTestProvider(t, "", nil)

		assert.Empty(t, p.ResolveForCatalog(t.Context(), "rose", 2))
		assert.Zero(t, mock.GetTotalCallCount())
	})
}

func TestCatalogPreservesOrder(t *testing.T) {
	rec := &searchRecorder{results: 1}
	p, _ := newTestProvider(t, "key", rec)

	names := []string{"azalea", "bee balm", "camellia", "daffodil", "foxglove", "gaura"}
	entries := p.Catalog(t.Context(), names)

	require.Len(t, entries, len(names))
	for i, e := range entries {
		assert.Equal(t, names[i], e.Name)
		assert.Equal(t, fmt.Sprintf("https://images.example/%s-flower/0.jpg", strings.ReplaceAll(names[i], " ", "-")), e.ImageURL)
	}
}

func TestCatalogWithoutCredential(t *testing.T) {
	p, _ := newTestProvider(t, "", nil)

	entries := p.Catalog(t.Context(), []string{"rose", "lotus"})

	require.Len(t, entries, 2)
	assert.Empty(t, entries[0].ImageURL)
	assert.Empty(t, entries[1].ImageURL)
}

func TestCloseStopsJanitor(t *testing.T) {
	p, _ := newTestProvider(t, "key", &searchRecorder{results: 1})

	p.Close()
	p.Close()

	select {
	case <-p.janitor.done:
	default:
		t.Fatal("memo janitor still running after Close")
	}
}
