package identify

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petalnet/petalnet-go/internal/classifier"
	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/labels"
	"github.com/petalnet/petalnet-go/internal/logger"
	"github.com/petalnet/petalnet-go/internal/preprocess"
)

type fakeScorer struct {
	scores []float32
	err    error
	inputs int
}

func (f *fakeScorer) Predict(input []float32) ([]float32, error) {
	f.inputs = len(input)
	return f.scores, f.err
}

type fakeText struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeText) Resolve(_ context.Context, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return "about " + name
}

type fakeImages struct {
	name  string
	count int
}

func (f *fakeImages) ResolveRelated(_ context.Context, name string, count int) []string {
	f.name, f.count = name, count
	out := make([]string, count)
	for i := range out {
		out[i] = "https://img.example/" + name
	}
	return out
}

type pauseRecorder struct {
	pauses []time.Duration
}

func (p *pauseRecorder) sleep(_ context.Context, d time.Duration) error {
	p.pauses = append(p.pauses, d)
	return nil
}

func testLabels() *labels.Resolver {
	return labels.Build(labels.RawLabelMap{
		"a": "pink primrose",
		"b": "hard-leaved pocket orchid",
		"c": "canterbury bells",
		"d": "sweet pea",
	})
}

func newTestOrchestrator(scorer Scorer, cfg Config) (*Orchestrator, *fakeText, *fakeImages, *pauseRecorder) {
	text := &fakeText{}
	images := &fakeImages{}
	pauses := &pauseRecorder{}
	o := New(testLabels(), scorer, text, images, cfg,
		WithLogger(logger.NewDiscardLogger()),
		WithSleeper(pauses.sleep))
	return o, text, images, pauses
}

func TestClassifyProbabilities(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(nil, Config{})

	preds := o.Classify([]float32{0.7, 0.2, 0.05, 0.05})

	require.Len(t, preds, 3)
	assert.Equal(t, "pink primrose", preds[0].Label)
	assert.InDelta(t, 0.7, preds[0].Confidence, 1e-6)
	assert.Equal(t, "hard-leaved pocket orchid", preds[1].Label)
	assert.InDelta(t, 0.2, preds[1].Confidence, 1e-6)
	assert.Equal(t, 2, preds[2].Index, "ties keep ascending index order")
}

func TestClassifyAppliesSoftmaxToLogits(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(nil, Config{})

	preds := o.Classify([]float32{1, 3, -2, 2})

	require.Len(t, preds, 3)
	assert.Equal(t, []int{1, 3, 0}, []int{preds[0].Index, preds[1].Index, preds[2].Index})

	var total float64
	for _, p := range softmax([]float32{1, 3, -2, 2}) {
		total += p
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.Greater(t, preds[0].Confidence, preds[1].Confidence)
}

func TestClassifyLargeLogitsStayFinite(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(nil, Config{})

	preds := o.Classify([]float32{1000, 999, 0, -1000})

	require.Len(t, preds, 3)
	assert.InDelta(t, 0.731, preds[0].Confidence, 1e-3)
}

func TestClassifyShortVector(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(nil, Config{})

	assert.Len(t, o.Classify([]float32{0.4, 0.6}), 2)
	assert.Empty(t, o.Classify(nil))
}

func TestClassifyOutOfRangeIndex(t *testing.T) {
	o := New(labels.Build(labels.RawLabelMap{"1": "rose"}), nil, &fakeText{}, &fakeImages{}, Config{},
		WithLogger(logger.NewDiscardLogger()))

	preds := o.Classify([]float32{0.1, 0.9})

	assert.Equal(t, "Unknown Flower 1", preds[0].Label)
	assert.Equal(t, "rose", preds[1].Label)
}

func TestEnrichPausesBetweenLookups(t *testing.T) {
	o, text, images, pauses := newTestOrchestrator(nil, Config{Pause: time.Second})
	preds := o.Classify([]float32{0.7, 0.2, 0.05, 0.05})

	res, err := o.Enrich(context.Background(), preds)
	require.NoError(t, err)

	assert.Equal(t, []string{"pink primrose", "hard-leaved pocket orchid", "canterbury bells"}, text.calls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, pauses.pauses)
	assert.Equal(t, "pink primrose", res.TopLabel)
	assert.Equal(t, "about pink primrose", res.Predictions[0].Description)
	assert.Equal(t, "pink primrose", images.name)
	assert.Equal(t, DefaultRelatedImages, images.count)
	assert.Len(t, res.RelatedImages, DefaultRelatedImages)
	assert.Equal(t, "about canterbury bells", res.Descriptions()["canterbury bells"])
}

func TestEnrichZeroPauseDisablesSleep(t *testing.T) {
	o, _, _, pauses := newTestOrchestrator(nil, Config{Pause: 0, RelatedImages: 2})

	res, err := o.Enrich(context.Background(), o.Classify([]float32{0.5, 0.5}))
	require.NoError(t, err)

	assert.Empty(t, pauses.pauses)
	assert.Len(t, res.RelatedImages, 2)
}

func TestEnrichEmptyPredictions(t *testing.T) {
	o, text, _, _ := newTestOrchestrator(nil, Config{})

	res, err := o.Enrich(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Predictions)
	assert.Empty(t, text.calls)
}

func TestEnrichStopsWhenContextCancelled(t *testing.T) {
	text := &fakeText{}
	o := New(testLabels(), nil, text, &fakeImages{}, Config{Pause: time.Hour},
		WithLogger(logger.NewDiscardLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Enrich(ctx, o.Classify([]float32{0.7, 0.2, 0.05, 0.05}))

	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, text.calls, 1)
}

func pngPhoto(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imaging.New(300, 260, color.NRGBA{R: 200, G: 40, B: 120, A: 255})))
	return buf.Bytes()
}

func TestIdentifyFullPipeline(t *testing.T) {
	scorer := &fakeScorer{scores: []float32{0.1, 4, 0.2, 2}}
	o, text, _, _ := newTestOrchestrator(scorer, Config{Pause: time.Second})

	res, err := o.Identify(context.Background(), bytes.NewReader(pngPhoto(t)))
	require.NoError(t, err)

	assert.Equal(t, preprocess.DefaultOptions().TensorLen(), scorer.inputs)
	assert.Equal(t, "hard-leaved pocket orchid", res.TopLabel)
	assert.Len(t, res.Predictions, 3)
	assert.Len(t, text.calls, 3)
}

func TestIdentifyWithoutModel(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(nil, Config{})
	assert.False(t, o.Ready())

	_, err := o.Identify(context.Background(), bytes.NewReader(pngPhoto(t)))
	assert.ErrorIs(t, err, classifier.ErrModelUnavailable)
}

func TestIdentifyRejectsUndecodableImage(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(&fakeScorer{scores: []float32{1}}, Config{})

	_, err := o.Identify(context.Background(), bytes.NewReader([]byte("nope")))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageDecode))
}

func TestIdentifyPropagatesInferenceError(t *testing.T) {
	boom := errors.NewStd("invoke failed")
	o, _, _, _ := newTestOrchestrator(&fakeScorer{err: boom}, Config{})

	_, err := o.Identify(context.Background(), bytes.NewReader(pngPhoto(t)))
	assert.ErrorIs(t, err, boom)
}
