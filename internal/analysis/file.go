package analysis

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/identify"
)

// Identifier runs the pipeline on one image.
type Identifier interface {
	Identify(ctx context.Context, r io.Reader) (*identify.Result, error)
}

var supportedExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// FileAnalysis identifies the image at path and writes the report to w.
func FileAnalysis(ctx context.Context, id Identifier, path string, w io.Writer) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(supportedExtensions, ext) {
		return errors.Newf("unsupported image type %q, expected one of %s", ext, strings.Join(supportedExtensions, ", ")).
			Component("analysis").
			Category(errors.CategoryValidation).
			Context("path", path).
			Build()
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.FileError(err, path)
	}
	defer f.Close()

	res, err := id.Identify(ctx, f)
	if err != nil {
		return err
	}
	return WriteResult(w, filepath.Base(path), res)
}
