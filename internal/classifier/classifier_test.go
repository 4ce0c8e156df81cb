package classifier

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/logger"
)

func TestLoadMissingModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.tflite")

	m, err := Load(path, Options{Log: logger.NewDiscardLogger()})

	require.Error(t, err)
	assert.Nil(t, m)
	assert.True(t, errors.IsCategory(err, errors.CategoryModelLoad))

	var ee *errors.EnhancedError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, path, ee.GetContext()["model_path"])
}

func TestPredictWithoutModel(t *testing.T) {
	var m *Model
	_, err := m.Predict(make([]float32, 4))
	assert.ErrorIs(t, err, ErrModelUnavailable)

	_, err = (&Model{}).Predict(nil)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestCloseIsIdempotent(t *testing.T) {
	var m *Model
	assert.NotPanics(t, m.Close)
	empty := &Model{}
	assert.NotPanics(t, empty.Close)
	assert.NotPanics(t, empty.Close)
}

func TestThreadCount(t *testing.T) {
	cpus := runtime.NumCPU()
	assert.Equal(t, cpus, threadCount(0))
	assert.Equal(t, cpus, threadCount(-1))
	assert.Equal(t, cpus, threadCount(cpus+10))
	assert.Equal(t, 1, threadCount(1))
}
