package imageprovider

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/httpclient"
)

// search runs one photo search and returns the small-size URLs in result order.
func (p *Provider) search(ctx context.Context, query string, perPage int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("client_id", p.accessKey)

	start := time.Now()
	resp, err := p.client.Get(ctx, p.endpoint+"?"+params.Encode())
	p.metrics.ObserveRequestDuration("unsplash", time.Since(start).Seconds())
	if err != nil {
		return nil, errors.New(err).
			Component("imageprovider").
			Category(errors.CategoryNetwork).
			Context("query", query).
			Build()
	}
	defer httpclient.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		category := errors.CategoryImageProvider
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
			category = errors.CategoryRateLimit
		}
		return nil, errors.Newf("photo search returned %d", resp.StatusCode).
			Component("imageprovider").
			Category(category).
			Context("query", query).
			Context("status_code", resp.StatusCode).
			Build()
	}

	obj, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return nil, errors.New(err).
			Component("imageprovider").
			Category(errors.CategoryImageProvider).
			Context("query", query).
			Build()
	}

	results, err := obj.GetObjectArray("results")
	if err != nil {
		return nil, errors.New(err).
			Component("imageprovider").
			Category(errors.CategoryImageProvider).
			Context("query", query).
			Context("operation", "parse_results").
			Build()
	}

	urls := make([]string, 0, len(results))
	for _, r := range results {
		small, err := r.GetString("urls", "small")
		if err != nil || small == "" {
			continue
		}
		urls = append(urls, small)
	}
	return urls, nil
}
