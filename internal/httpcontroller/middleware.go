package httpcontroller

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/petalnet/petalnet-go/internal/logger"
)

// uploadSlack is what multipart framing may add on top of the file itself.
const uploadSlack = 1 << 20

// configureMiddleware sets up middleware for the server.
func (s *Server) configureMiddleware() {
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithTraceID(req.Context(), id)))
		},
	}))
	s.Echo.Use(s.requestLoggerMiddleware())
	s.Echo.Use(middleware.Secure())
}

// requestLoggerMiddleware logs every request and feeds the HTTP metrics.
func (s *Server) requestLoggerMiddleware() echo.MiddlewareFunc {
	httpLogger := s.log.Module("request")

	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogMethod:    true,
		LogError:     true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			s.httpMetrics.RecordRequest(v.Method, path, v.Status, v.Latency.Seconds())

			fields := []logger.Field{
				logger.String("request_id", v.RequestID),
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.String("remote_ip", v.RemoteIP),
				logger.Duration("latency", v.Latency),
			}
			switch {
			case v.Status >= 500:
				httpLogger.Error("request failed", append(fields, logger.Error(v.Error))...)
			case v.Status >= 400:
				httpLogger.Warn("request rejected", fields...)
			default:
				httpLogger.Debug("request served", fields...)
			}
			return nil
		},
	})
}

// uploadBodyLimit caps request bodies on upload routes.
func (s *Server) uploadBodyLimit() echo.MiddlewareFunc {
	return middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: formatBytes(s.Settings.MaxUploadBytes() + uploadSlack),
	})
}
