package analysis

import (
	"fmt"
	"io"

	"github.com/petalnet/petalnet-go/internal/floradata"
	"github.com/petalnet/petalnet-go/internal/identify"
	"github.com/petalnet/petalnet-go/internal/imageprovider"
	"github.com/petalnet/petalnet-go/internal/labels"
)

// WriteResult prints the ranked predictions, their descriptions and the
// related photos of one identification.
func WriteResult(w io.Writer, source string, res *identify.Result) error {
	p := &printer{w: w}
	p.printf("Image: %s\n\n", source)
	for i, pred := range res.Predictions {
		p.printf("%d. %-30s %5.1f%%\n", i+1, floradata.Title(pred.Label), pred.Confidence*100)
		if pred.Description != "" {
			p.printf("   %s\n", pred.Description)
		}
	}
	if len(res.RelatedImages) > 0 {
		p.printf("\nRelated photos of %s:\n", floradata.Title(res.TopLabel))
		for _, u := range res.RelatedImages {
			p.printf("   %s\n", u)
		}
	}
	return p.err
}

// WriteLabels prints the index to name table in classifier output order.
func WriteLabels(w io.Writer, r *labels.Resolver) error {
	p := &printer{w: w}
	if r.Synthetic() {
		p.printf("# synthetic labels, the label file could not be used\n")
	}
	for i := range r.Len() {
		p.printf("%4d  %s\n", i, r.Label(i))
	}
	return p.err
}

// WriteCatalog prints every species with its catalog photo, or "-" when the
// image search found none.
func WriteCatalog(w io.Writer, entries []imageprovider.CatalogEntry) error {
	p := &printer{w: w}
	for _, e := range entries {
		u := e.ImageURL
		if u == "" {
			u = "-"
		}
		p.printf("%-30s %s\n", floradata.Title(e.Name), u)
	}
	return p.err
}

// printer keeps the first write error so report code stays linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
