package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/logger"
)

// mockTransport implements sentry.Transport and keeps events in memory.
type mockTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *mockTransport) Configure(sentry.ClientOptions) {}

func (t *mockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *mockTransport) Flush(time.Duration) bool              { return true }
func (t *mockTransport) FlushWithContext(context.Context) bool { return true }
func (t *mockTransport) Close()                                {}

func (t *mockTransport) captured() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

func initForTesting(t *testing.T) *mockTransport {
	t.Helper()
	transport := &mockTransport{}
	require.NoError(t, Init(Config{Enabled: true, Release: "test", Environment: "test", Transport: transport},
		logger.NewDiscardLogger()))
	t.Cleanup(func() {
		Flush()
		errors.SetTelemetryReporter(nil)
	})
	return transport
}

func TestBuiltErrorsAreReported(t *testing.T) {
	transport := initForTesting(t)

	errors.Newf("search failed for https://api.unsplash.com/search/photos?client_id=secret").
		Component("imageprovider").
		Category(errors.CategoryImageProvider).
		Context("query", "rose").
		Build()

	events := transport.captured()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, sentry.LevelError, ev.Level)
	assert.Equal(t, "imageprovider", ev.Tags["component"])
	assert.Equal(t, "image-provider", ev.Tags["category"])
	assert.NotContains(t, ev.Message, "secret")
	assert.Contains(t, ev.Message, "imageprovider:")
}

func TestDisabledTelemetrySendsNothing(t *testing.T) {
	transport := initForTesting(t)
	require.NoError(t, Init(Config{Enabled: false}, logger.NewDiscardLogger()))

	errors.Newf("boom").Component("test").Build()

	assert.Empty(t, transport.captured())
	assert.False(t, errors.GetTelemetryReporter().IsEnabled())
}

func TestReporterMarksErrorReported(t *testing.T) {
	initForTesting(t)
	ee := &errors.EnhancedError{Err: errors.NewStd("x"), Component: "c", Category: errors.CategoryGeneric}

	NewSentryReporter(true).ReportError(ee)

	assert.True(t, ee.IsReported())
}

func TestPrivacyFilter(t *testing.T) {
	ev := &sentry.Event{
		ServerName: "my-host",
		Message:    "GET https://example.com/x?token=abc failed",
		User:       sentry.User{IPAddress: "10.0.0.1"},
	}

	out := applyPrivacyFilters(ev, nil)

	assert.Empty(t, out.ServerName)
	assert.Empty(t, out.User.IPAddress)
	assert.NotContains(t, out.Message, "abc")
}
