package datastore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/logger"
	"github.com/petalnet/petalnet-go/internal/observability/metrics"
)

func openTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewDiscardLogger())}, opts...)
	store := New(filepath.Join(t.TempDir(), "history", "petalnet.db"), opts...)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewIdentification(t *testing.T) {
	rec := NewIdentification("a.jpg", []string{"rose", "tulip", "lotus"}, []float64{0.8, 0.15, 0.05})

	assert.Equal(t, "rose", rec.TopLabel)
	assert.InDelta(t, 0.8, rec.TopConfidence, 1e-9)
	require.Len(t, rec.Results, 3)
	assert.Equal(t, 3, rec.Results[2].Rank)
	assert.Equal(t, "lotus", rec.Results[2].Label)

	empty := NewIdentification("b.jpg", nil, nil)
	assert.Empty(t, empty.TopLabel)
	assert.Empty(t, empty.Results)
}

func TestSaveAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := NewIdentification("first.jpg", []string{"rose", "tulip"}, []float64{0.6, 0.3})
	first.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, NewIdentification("second.png", []string{"lotus", "water lily", "rose"}, []float64{0.9, 0.05, 0.02})))

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	assert.Equal(t, "second.png", recent[0].ImageFile)
	assert.Equal(t, "lotus", recent[0].TopLabel)
	require.Len(t, recent[0].Results, 3)
	assert.Equal(t, []string{"lotus", "water lily", "rose"},
		[]string{recent[0].Results[0].Label, recent[0].Results[1].Label, recent[0].Results[2].Label})
	assert.Equal(t, "first.jpg", recent[1].ImageFile)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRecentLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for range 5 {
		require.NoError(t, store.Save(ctx, NewIdentification("x.jpg", []string{"rose"}, []float64{1})))
	}

	recent, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	recent, err = store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 5)
}

func TestOperationsBeforeOpen(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "x.db"), WithLogger(logger.NewDiscardLogger()))
	ctx := context.Background()

	err := store.Save(ctx, &Identification{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))

	_, err = store.Recent(ctx, 1)
	require.Error(t, err)
	_, err = store.Count(ctx)
	require.Error(t, err)
	assert.NoError(t, store.Close())
}

func TestSaveRecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := metrics.NewHistoryMetrics(registry)
	require.NoError(t, err)
	store := openTestStore(t, WithMetrics(m))

	require.NoError(t, store.Save(context.Background(), NewIdentification("x.jpg", []string{"rose"}, []float64{1})))

	count, err := testutil.GatherAndCount(registry)
	require.NoError(t, err)
	assert.Positive(t, count)
}
