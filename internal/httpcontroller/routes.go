package httpcontroller

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/logger"
)

// initRoutes initializes the routes for the server.
func (s *Server) initRoutes() {
	s.Echo.GET("/", s.indexHandler)
	s.Echo.POST("/", s.uploadHandler, s.uploadBodyLimit())
	s.Echo.GET("/gallery", s.galleryHandler)
	s.Echo.GET("/about", s.aboutHandler)
	s.Echo.GET(uploadsRoute+"/*", s.uploadsHandler())
	s.Echo.GET("/healthz", s.healthHandler)

	if s.metrics != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	}

	s.initAPIRoutes()
}

// httpErrorHandler answers errors that escaped a handler, including panics
// caught by Recover. API routes get JSON, pages get the index page with a
// message. Internal details never reach the client.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := msgSystemError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if code < http.StatusInternalServerError {
			message = fmt.Sprint(he.Message)
		}
	}
	if code == http.StatusRequestEntityTooLarge {
		message = fmt.Sprintf(msgTooLarge, s.Settings.WebServer.MaxUploadMB)
	}
	if code >= http.StatusInternalServerError {
		s.requestLogger(c).Error("unhandled request error",
			logger.String("path", c.Request().URL.Path),
			logger.Error(err))
	}

	var writeErr error
	switch {
	case c.Request().Method == http.MethodHead:
		writeErr = c.NoContent(code)
	case strings.HasPrefix(c.Request().URL.Path, apiPrefix+"/"):
		writeErr = s.HandleError(c, err, message, code)
	case code == http.StatusNotFound:
		writeErr = c.String(code, message)
	default:
		data := s.newPageData("Identify")
		data.Error = message
		writeErr = c.Render(code, "index", data)
	}
	if writeErr != nil {
		s.log.Error("failed to write error response", logger.Error(writeErr))
	}
}
