package logger

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleLoggerWritesFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelDebug, time.UTC).Module("wikipedia")

	log.Info("summary fetched", String("term", "Rosa"), Int("attempt", 2), Error(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "module=wikipedia")
	assert.Contains(t, out, "term=Rosa")
	assert.Contains(t, out, "attempt=2")
	assert.Contains(t, out, "error=boom")
	assert.NotContains(t, out, "time=")
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelWarn, time.UTC)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestSubModuleAndWith(t *testing.T) {
	buf := &bytes.Buffer{}
	base := NewSlogLogger(buf, LogLevelInfo, time.UTC).Module("http")
	child := base.Module("api").With(String("request_id", "r-1"))

	child.Info("handled")
	base.Info("plain")

	out := buf.String()
	assert.Contains(t, out, "module=http.api")
	assert.Contains(t, out, "request_id=r-1")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("request_id")))
}

func TestWithContextTraceID(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC)

	ctx := WithTraceID(context.Background(), "abc-123")
	log.WithContext(ctx).Info("traced")

	assert.Contains(t, buf.String(), "trace_id=abc-123")
	assert.Equal(t, "abc-123", TraceID(ctx))
	assert.Empty(t, TraceID(context.Background()))
}

func TestCentralLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"noisy": "error"},
	})
	require.NoError(t, err)

	cl.Module("labels").Info("loaded", Int("count", 102))
	cl.Module("noisy").Info("suppressed")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"module":"labels"`)
	assert.Contains(t, string(data), `"count":102`)
	assert.NotContains(t, string(data), "suppressed")
}

func TestNewCentralLoggerRejectsBadTimezone(t *testing.T) {
	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)

	_, err = NewCentralLogger(nil)
	require.Error(t, err)
}
