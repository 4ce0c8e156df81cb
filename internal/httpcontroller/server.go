// Package httpcontroller serves the upload page, the species gallery and the
// JSON API on top of echo.
package httpcontroller

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"

	"github.com/petalnet/petalnet-go/internal/conf"
	"github.com/petalnet/petalnet-go/internal/datastore"
	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/identify"
	"github.com/petalnet/petalnet-go/internal/imageprovider"
	"github.com/petalnet/petalnet-go/internal/labels"
	"github.com/petalnet/petalnet-go/internal/logger"
	"github.com/petalnet/petalnet-go/internal/mqtt"
	"github.com/petalnet/petalnet-go/internal/observability/metrics"
)

const shutdownTimeout = 10 * time.Second

// Identifier runs the identification pipeline.
type Identifier interface {
	Identify(ctx context.Context, r io.Reader) (*identify.Result, error)
	Ready() bool
	Labels() *labels.Resolver
}

// DescriptionResolver returns species descriptions; it never fails.
type DescriptionResolver interface {
	Resolve(ctx context.Context, displayName string) string
}

// CatalogProvider resolves one gallery image per species.
type CatalogProvider interface {
	Catalog(ctx context.Context, names []string) []imageprovider.CatalogEntry
	Configured() bool
}

// Dependencies are the services the server routes to. Store and Publisher
// are optional.
type Dependencies struct {
	Identifier   Identifier
	Descriptions DescriptionResolver
	Catalog      CatalogProvider
	Store        datastore.Interface
	Publisher    mqtt.Publisher
	Metrics      *metrics.Metrics
	UploadFs     afero.Fs // defaults to the OS filesystem
}

// Server encapsulates Echo server and related configurations.
type Server struct {
	Echo     *echo.Echo
	Settings *conf.Settings

	identifier   Identifier
	descriptions DescriptionResolver
	catalog      CatalogProvider
	store        datastore.Interface
	publisher    mqtt.Publisher
	metrics      *metrics.Metrics
	httpMetrics  *metrics.HTTPMetrics
	uploads      afero.Fs

	log logger.Logger
}

// New initializes a new HTTP server with its middleware and routes.
func New(settings *conf.Settings, deps Dependencies, log logger.Logger) *Server {
	if log == nil {
		log = logger.Global().Module("http")
	}
	s := &Server{
		Echo:         echo.New(),
		Settings:     settings,
		identifier:   deps.Identifier,
		descriptions: deps.Descriptions,
		catalog:      deps.Catalog,
		store:        deps.Store,
		publisher:    deps.Publisher,
		metrics:      deps.Metrics,
		uploads:      deps.UploadFs,
		log:          log,
	}
	if s.uploads == nil {
		s.uploads = afero.NewOsFs()
	}
	if s.metrics != nil {
		s.httpMetrics = s.metrics.HTTP
	}

	s.initializeServer()
	return s
}

// initializeServer configures and initializes the server.
func (s *Server) initializeServer() {
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.Logger.SetOutput(io.Discard)
	s.Echo.HTTPErrorHandler = s.httpErrorHandler
	s.setupTemplateRenderer()
	s.configureMiddleware()
	s.initRoutes()
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if err := s.uploads.MkdirAll(s.Settings.WebServer.UploadDir, 0o755); err != nil {
		return errors.FileError(err, s.Settings.WebServer.UploadDir)
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started", logger.String("listen", s.Settings.WebServer.Listen))
		if err := s.Echo.Start(s.Settings.WebServer.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return errors.New(err).
			Component("http").
			Category(errors.CategoryNetwork).
			Context("listen", s.Settings.WebServer.Listen).
			Build()
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("shutting down HTTP server")
	return s.Echo.Shutdown(shutdownCtx)
}

// requestLogger returns the logger carrying the request id.
func (s *Server) requestLogger(c echo.Context) logger.Logger {
	return s.log.WithContext(c.Request().Context())
}
