package imageprovider

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// catalogConcurrency bounds parallel catalog searches.
const catalogConcurrency = 4

// CatalogEntry pairs a species with its catalog photo, empty when none was found.
type CatalogEntry struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// Catalog resolves one photo per name, preserving the order of names.
func (p *Provider) Catalog(ctx context.Context, names []string) []CatalogEntry {
	entries := make([]CatalogEntry, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(catalogConcurrency)
	for i, name := range names {
		entries[i].Name = name
		g.Go(func() error {
			if urls := p.ResolveForCatalog(gctx, name, 1); len(urls) > 0 {
				entries[i].ImageURL = urls[0]
			}
			return nil
		})
	}
	_ = g.Wait()

	return entries
}
