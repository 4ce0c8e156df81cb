// Package analysis wires the identification pipeline together from settings
// and runs it either behind the web server or once against a local file.
package analysis

import (
	"context"
	"net/http"
	"time"

	"github.com/petalnet/petalnet-go/internal/buildinfo"
	"github.com/petalnet/petalnet-go/internal/classifier"
	"github.com/petalnet/petalnet-go/internal/conf"
	"github.com/petalnet/petalnet-go/internal/datastore"
	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/floradata"
	"github.com/petalnet/petalnet-go/internal/httpclient"
	"github.com/petalnet/petalnet-go/internal/identify"
	"github.com/petalnet/petalnet-go/internal/imageprovider"
	"github.com/petalnet/petalnet-go/internal/infocache"
	"github.com/petalnet/petalnet-go/internal/labels"
	"github.com/petalnet/petalnet-go/internal/logger"
	"github.com/petalnet/petalnet-go/internal/mqtt"
	"github.com/petalnet/petalnet-go/internal/observability/metrics"
	"github.com/petalnet/petalnet-go/internal/preprocess"
	"github.com/petalnet/petalnet-go/internal/telemetry"
	"github.com/petalnet/petalnet-go/internal/wikipedia"
)

// Options selects the optional outputs Setup brings up.
type Options struct {
	History bool // open the SQLite identification history when enabled in settings
	Publish bool // connect the MQTT publisher when enabled in settings
}

// Services holds every long-lived component of a running instance.
type Services struct {
	Settings     *conf.Settings
	Build        *buildinfo.Context
	Metrics      *metrics.Metrics
	Tables       *floradata.Tables
	Labels       *labels.Resolver
	Model        *classifier.Model // nil when the checkpoint could not be loaded
	Client       *httpclient.Client
	Cache        *infocache.Cache
	Descriptions *wikipedia.Service
	Images       *imageprovider.Provider
	Identifier   *identify.Orchestrator
	Store        datastore.Interface // nil when history is disabled
	Publisher    mqtt.Publisher      // nil when publishing is disabled

	log logger.Logger
}

// Setup builds the pipeline. A missing label file or checkpoint does not fail
// setup: the instance degrades to synthetic labels or to reporting the model
// as unavailable per request. Only broken configuration of an enabled output
// is returned as an error.
func Setup(ctx context.Context, settings *conf.Settings, build *buildinfo.Context, opts Options) (*Services, error) {
	log := logger.Global().Module("analysis")
	s := &Services{Settings: settings, Build: build, log: log}

	if err := telemetry.Init(telemetry.Config{
		Enabled: settings.Sentry.Enabled,
		DSN:     settings.Sentry.DSN,
		Release: build.GetVersion(),
	}, logger.Global().Module("telemetry")); err != nil {
		log.Warn("error telemetry unavailable", logger.Error(err))
	}

	m, err := metrics.NewMetrics()
	if err != nil {
		return nil, errors.New(err).
			Component("analysis").
			Category(errors.CategoryConfiguration).
			Context("operation", "metrics_init").
			Build()
	}
	s.Metrics = m

	s.Tables = floradata.MustDefault()

	// labels.Load always returns a usable resolver
	s.Labels, _ = labels.Load(settings.Model.LabelPath, settings.Model.ClassCount, logger.Global().Module("labels"))

	s.loadModel()

	s.Client = httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.Enrichment.LookupTimeout,
		UserAgent:      wikipedia.BuildUserAgent(build.GetVersion(), settings.Wikipedia.Contact),
	})
	clientLog := logger.Global().Module("httpclient")
	s.Client.SetAfterResponseHook(func(req *http.Request, resp *http.Response, d time.Duration, err error) {
		fields := []logger.Field{
			logger.String("host", req.URL.Host),
			logger.Duration("duration", d),
		}
		if resp != nil {
			fields = append(fields, logger.Int("status", resp.StatusCode))
		}
		if err != nil {
			fields = append(fields, logger.Error(err))
		}
		clientLog.Debug("outbound request", fields...)
	})

	s.Cache = infocache.Open(settings.Enrichment.CachePath,
		infocache.WithLogger(logger.Global().Module("infocache")),
		infocache.WithMetrics(m.Enrichment))

	s.Descriptions = wikipedia.New(s.Client, s.Cache, s.Tables, wikipedia.Config{
		Endpoint:    settings.Wikipedia.Endpoint,
		Timeout:     settings.Enrichment.LookupTimeout,
		MaxAttempts: settings.Enrichment.MaxAttempts,
	}, wikipedia.WithLogger(logger.Global().Module("wikipedia")), wikipedia.WithMetrics(m.Enrichment))

	s.Images = imageprovider.New(s.Client, s.Tables, imageprovider.Config{
		Endpoint:   settings.Unsplash.Endpoint,
		AccessKey:  settings.Unsplash.AccessKey,
		Timeout:    settings.Enrichment.LookupTimeout,
		CatalogTTL: settings.Unsplash.CatalogCacheTTL,
		RateLimit:  settings.Unsplash.RateLimit,
	}, imageprovider.WithLogger(logger.Global().Module("imageprovider")), imageprovider.WithMetrics(m.Enrichment))
	if !s.Images.Configured() {
		log.Info("image search not configured, related photos use placeholders")
	}

	prep := preprocess.DefaultOptions()
	if settings.Model.Layout != "" {
		prep.Layout = settings.Model.Layout
	}
	if s.Model != nil && s.Model.InputLen() != prep.TensorLen() {
		log.Warn("model input size does not match preprocessing",
			logger.Int("model_input", s.Model.InputLen()),
			logger.Int("tensor_len", prep.TensorLen()))
	}

	// a nil *classifier.Model must not become a non-nil Scorer
	var scorer identify.Scorer
	if s.Model != nil {
		scorer = s.Model
	}
	s.Identifier = identify.New(s.Labels, scorer, s.Descriptions, s.Images, identify.Config{
		Pause:         settings.Enrichment.Pause,
		RelatedImages: settings.Enrichment.RelatedImages,
		Preprocess:    prep,
	}, identify.WithLogger(logger.Global().Module("identify")), identify.WithMetrics(m.Classifier))

	if opts.History && settings.Output.SQLite.Enabled {
		store := datastore.New(settings.Output.SQLite.Path,
			datastore.WithLogger(logger.Global().Module("datastore")),
			datastore.WithMetrics(m.History))
		if err := store.Open(); err != nil {
			s.Close()
			return nil, err
		}
		s.Store = store
	}

	if opts.Publish && settings.MQTT.Enabled {
		s.connectPublisher(ctx)
	}

	return s, nil
}

func (s *Services) loadModel() {
	model, err := classifier.Load(s.Settings.Model.Path, classifier.Options{
		Threads: s.Settings.Model.Threads,
		Log:     logger.Global().Module("classifier"),
		Metrics: s.Metrics.Classifier,
	})
	if err != nil {
		s.Metrics.Classifier.SetModelLoaded(false)
		s.log.Error("classifier unavailable, identifications will be refused",
			logger.String("model_path", s.Settings.Model.Path),
			logger.Error(err))
		return
	}
	if model.Classes() != s.Labels.Len() {
		s.log.Warn("model class count differs from label count",
			logger.Int("classes", model.Classes()),
			logger.Int("labels", s.Labels.Len()))
	}
	s.Model = model
}

// connectPublisher starts the MQTT client. A broker that is down at startup
// is logged and the publisher stays attached; paho keeps reconnecting.
func (s *Services) connectPublisher(ctx context.Context) {
	cfg := mqtt.DefaultConfig()
	cfg.Broker = s.Settings.MQTT.Broker
	cfg.Username = s.Settings.MQTT.Username
	cfg.Password = s.Settings.MQTT.Password
	if s.Settings.MQTT.Topic != "" {
		cfg.Topic = s.Settings.MQTT.Topic
	}
	if s.Settings.MQTT.ClientID != "" {
		cfg.ClientID = s.Settings.MQTT.ClientID
	}

	client := mqtt.NewClient(cfg,
		mqtt.WithLogger(logger.Global().Module("mqtt")),
		mqtt.WithMetrics(s.Metrics.History))
	if err := client.Connect(ctx); err != nil {
		s.log.Warn("mqtt broker unreachable at startup",
			logger.String("broker", cfg.Broker),
			logger.Error(err))
	}
	s.Publisher = client
}

// Close releases everything Setup acquired. Safe to call more than once.
func (s *Services) Close() {
	if s.Cache != nil {
		if err := s.Cache.Flush(); err != nil {
			s.log.Warn("failed to flush description cache", logger.Error(err))
		}
	}
	if s.Model != nil {
		s.Model.Close()
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			s.log.Warn("failed to close history store", logger.Error(err))
		}
		s.Store = nil
	}
	if s.Publisher != nil {
		s.Publisher.Disconnect()
		s.Publisher = nil
	}
	if s.Images != nil {
		s.Images.Close()
	}
	if s.Client != nil {
		s.Client.Close()
	}
	telemetry.Flush()
}
