// Package telemetry provides opt-in error reporting to Sentry.
package telemetry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/logger"
)

const flushTimeout = 2 * time.Second

var sentryInitialized atomic.Bool

// Config controls Sentry initialization.
type Config struct {
	Enabled     bool
	DSN         string
	Release     string
	Environment string
	Transport   sentry.Transport // nil uses the SDK's HTTP transport
}

// Init initializes the Sentry SDK and registers the error reporter. When
// telemetry is disabled a disabled reporter is registered and nothing is sent.
func Init(cfg Config, log logger.Logger) error {
	if log == nil {
		log = logger.Global().Module("telemetry")
	}
	if !cfg.Enabled {
		errors.SetTelemetryReporter(NewSentryReporter(false))
		log.Debug("error telemetry disabled")
		return nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Transport:        cfg.Transport,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      cfg.Environment,
		ServerName:       "",
		Release:          fmt.Sprintf("petalnet-go@%s", cfg.Release),
		BeforeSend:       applyPrivacyFilters,
	})
	if err != nil {
		errors.SetTelemetryReporter(NewSentryReporter(false))
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sentryInitialized.Store(true)
	errors.SetTelemetryReporter(NewSentryReporter(true))
	log.Info("error telemetry enabled", logger.String("environment", cfg.Environment))
	return nil
}

// applyPrivacyFilters strips host details and scrubs credentials from messages.
func applyPrivacyFilters(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.ServerName = ""
	event.User = sentry.User{}
	event.Request = nil
	event.Message = errors.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = errors.ScrubMessage(event.Exception[i].Value)
	}
	return event
}

// Flush waits for queued events to be delivered.
func Flush() {
	if sentryInitialized.Load() {
		sentry.Flush(flushTimeout)
	}
}

// SentryReporter implements errors.TelemetryReporter.
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

// IsEnabled reports whether errors are forwarded
func (r *SentryReporter) IsEnabled() bool {
	return r.enabled
}

// ReportError sends ee to Sentry tagged with its component and category.
func (r *SentryReporter) ReportError(ee *errors.EnhancedError) {
	if !r.enabled || ee == nil {
		return
	}
	ee.MarkReported()

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.Component)
		scope.SetTag("category", string(ee.Category))
		if ctx := ee.GetContext(); len(ctx) > 0 {
			scrubbed := make(map[string]any, len(ctx))
			for k, v := range ctx {
				if s, ok := v.(string); ok {
					v = errors.ScrubMessage(s)
				}
				scrubbed[k] = v
			}
			scope.SetContext("error", scrubbed)
		}
		scope.SetFingerprint([]string{ee.Component, string(ee.Category)})

		event := sentry.NewEvent()
		event.Level = sentry.LevelError
		event.Message = fmt.Sprintf("%s: %s", ee.Component, errors.ScrubMessage(ee.Error()))
		sentry.CaptureEvent(event)
	})
}
