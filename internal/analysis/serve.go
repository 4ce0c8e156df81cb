package analysis

import (
	"context"

	"github.com/petalnet/petalnet-go/internal/httpcontroller"
	"github.com/petalnet/petalnet-go/internal/logger"
)

// Serve runs the web server on top of s until ctx is cancelled.
func Serve(ctx context.Context, s *Services) error {
	s.log.Info("starting PetalNet-Go",
		logger.String("version", s.Build.GetVersion()),
		logger.String("listen", s.Settings.WebServer.Listen),
		logger.Bool("model_ready", s.Identifier.Ready()),
		logger.Int("labels", s.Labels.Len()),
		logger.Bool("history", s.Store != nil),
		logger.Bool("mqtt", s.Publisher != nil))

	deps := httpcontroller.Dependencies{
		Identifier:   s.Identifier,
		Descriptions: s.Descriptions,
		Catalog:      s.Images,
		Metrics:      s.Metrics,
	}
	// assigned separately so a disabled output stays a nil interface
	if s.Store != nil {
		deps.Store = s.Store
	}
	if s.Publisher != nil {
		deps.Publisher = s.Publisher
	}

	server := httpcontroller.New(s.Settings, deps, logger.Global().Module("http"))
	return server.Start(ctx)
}
