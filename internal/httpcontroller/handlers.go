package httpcontroller

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/petalnet/petalnet-go/internal/classifier"
	"github.com/petalnet/petalnet-go/internal/datastore"
	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/identify"
	"github.com/petalnet/petalnet-go/internal/imageprovider"
	"github.com/petalnet/petalnet-go/internal/logger"
	"github.com/petalnet/petalnet-go/internal/mqtt"
)

const (
	recentOnIndex  = 5
	publishTimeout = 5 * time.Second
)

// PageData represents data for rendering a page.
type PageData struct {
	Title         string
	Error         string
	ModelReady    bool
	MaxUploadMB   int
	UploadedImage string
	Result        *identify.Result
	Recent        []datastore.Identification
	Flowers       []imageprovider.CatalogEntry
}

// outcome is a finished identification of a stored upload.
type outcome struct {
	Upload           *storedUpload
	Result           *identify.Result
	IdentificationID uint
}

func (s *Server) newPageData(title string) PageData {
	return PageData{
		Title:       title,
		ModelReady:  s.identifier.Ready(),
		MaxUploadMB: s.Settings.WebServer.MaxUploadMB,
	}
}

// indexHandler renders the upload form and the recent history.
func (s *Server) indexHandler(c echo.Context) error {
	data := s.newPageData("Identify")
	data.Recent = s.recentIdentifications(c.Request().Context(), recentOnIndex)
	return c.Render(http.StatusOK, "index", data)
}

// uploadHandler identifies the posted photo and renders the result page.
// Upload problems are shown on the page instead of failing the request.
func (s *Server) uploadHandler(c echo.Context) error {
	data := s.newPageData("Identify")

	out, err := s.processUpload(c)
	if err != nil {
		status, message := s.userFacing(c, err)
		data.Error = message
		data.Recent = s.recentIdentifications(c.Request().Context(), recentOnIndex)
		return c.Render(status, "index", data)
	}

	data.Title = "Result"
	data.UploadedImage = out.Upload.URL
	data.Result = out.Result
	data.Recent = s.recentIdentifications(c.Request().Context(), recentOnIndex)
	return c.Render(http.StatusOK, "index", data)
}

// galleryHandler lists every species with one catalog image or none.
func (s *Server) galleryHandler(c echo.Context) error {
	data := s.newPageData("Gallery")
	names := s.identifier.Labels().Names()
	data.Flowers = s.catalog.Catalog(c.Request().Context(), names)
	return c.Render(http.StatusOK, "gallery", data)
}

func (s *Server) aboutHandler(c echo.Context) error {
	return c.Render(http.StatusOK, "about", s.newPageData("About"))
}

// processUpload is the flow shared by the page and the API: store the
// upload, identify it, then record and publish the result.
func (s *Server) processUpload(c echo.Context) (*outcome, error) {
	if !s.identifier.Ready() {
		return nil, classifier.ErrModelUnavailable
	}

	upload, err := s.receiveUpload(c)
	if err != nil {
		return nil, err
	}

	f, err := s.uploads.Open(upload.Path)
	if err != nil {
		return nil, errors.FileError(err, upload.Path)
	}
	defer f.Close()

	ctx := c.Request().Context()
	result, err := s.identifier.Identify(ctx, f)
	if err != nil {
		return nil, err
	}

	out := &outcome{Upload: upload, Result: result}
	out.IdentificationID = s.recordIdentification(ctx, upload, result)
	s.publishIdentification(ctx, out)

	s.requestLogger(c).Info("photo identified",
		logger.String("file", upload.Name),
		logger.String("top_label", result.TopLabel),
		logger.Float64("confidence", topConfidence(result)))
	return out, nil
}

// userFacing maps an identification error to a status and a message for the
// person uploading. Unexpected errors are logged and reported generically.
func (s *Server) userFacing(c echo.Context, err error) (int, string) {
	var uerr *userError
	switch {
	case errors.As(err, &uerr):
		return uerr.status, uerr.message
	case errors.Is(err, classifier.ErrModelUnavailable):
		return http.StatusServiceUnavailable, msgModelMissing
	case errors.IsCategory(err, errors.CategoryImageDecode):
		return http.StatusUnprocessableEntity, msgUnreadable
	default:
		s.requestLogger(c).Error("identification failed", logger.Error(err))
		return http.StatusInternalServerError, msgSystemError
	}
}

func (s *Server) recordIdentification(ctx context.Context, upload *storedUpload, result *identify.Result) uint {
	if s.store == nil {
		return 0
	}
	labels := make([]string, len(result.Predictions))
	confidences := make([]float64, len(result.Predictions))
	for i, p := range result.Predictions {
		labels[i] = p.Label
		confidences[i] = p.Confidence
	}
	rec := datastore.NewIdentification(upload.Name, labels, confidences)
	if err := s.store.Save(ctx, rec); err != nil {
		s.log.Warn("failed to record identification", logger.Error(err))
		return 0
	}
	return rec.ID
}

func (s *Server) publishIdentification(ctx context.Context, out *outcome) {
	if s.publisher == nil || !s.publisher.IsConnected() {
		return
	}
	event := &mqtt.EventDTO{
		Timestamp:     time.Now(),
		IdentityID:    out.IdentificationID,
		ImageFile:     out.Upload.Name,
		TopLabel:      out.Result.TopLabel,
		TopConfidence: topConfidence(out.Result),
		Predictions:   make([]mqtt.PredictionDTO, len(out.Result.Predictions)),
	}
	for i, p := range out.Result.Predictions {
		event.Predictions[i] = mqtt.PredictionDTO{Label: p.Label, Confidence: p.Confidence}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.log.Warn("failed to publish identification", logger.Error(err))
	}
}

func (s *Server) recentIdentifications(ctx context.Context, limit int) []datastore.Identification {
	if s.store == nil {
		return nil
	}
	recent, err := s.store.Recent(ctx, limit)
	if err != nil {
		s.log.Warn("failed to load recent identifications", logger.Error(err))
		return nil
	}
	return recent
}

func topConfidence(r *identify.Result) float64 {
	if len(r.Predictions) == 0 {
		return 0
	}
	return r.Predictions[0].Confidence
}
