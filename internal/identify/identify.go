// Package identify turns a photo into labeled, enriched predictions.
package identify

import (
	"context"
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/petalnet/petalnet-go/internal/classifier"
	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/labels"
	"github.com/petalnet/petalnet-go/internal/logger"
	"github.com/petalnet/petalnet-go/internal/observability/metrics"
	"github.com/petalnet/petalnet-go/internal/preprocess"
)

const (
	DefaultTopK          = 3
	DefaultPause         = time.Second
	DefaultRelatedImages = 4

	// probabilityTolerance is how far from 1 a score vector may sum and still
	// be treated as probabilities.
	probabilityTolerance = 1e-3
)

// Scorer runs the classifier on a preprocessed input tensor.
type Scorer interface {
	Predict(input []float32) ([]float32, error)
}

// TextResolver returns a description for a species; it never fails.
type TextResolver interface {
	Resolve(ctx context.Context, displayName string) string
}

// ImageResolver returns exactly count related photo URLs.
type ImageResolver interface {
	ResolveRelated(ctx context.Context, name string, count int) []string
}

// Prediction is one ranked class.
type Prediction struct {
	Index       int     `json:"index"`
	Label       string  `json:"label"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description,omitempty"`
}

// Result is the outcome of one identification.
type Result struct {
	Predictions   []Prediction `json:"predictions"`
	TopLabel      string       `json:"top_label"`
	RelatedImages []string     `json:"related_images"`
}

// Descriptions maps each lowercased prediction label to its description.
func (r *Result) Descriptions() map[string]string {
	out := make(map[string]string, len(r.Predictions))
	for _, p := range r.Predictions {
		out[strings.ToLower(p.Label)] = p.Description
	}
	return out
}

// Config tunes the orchestrator.
type Config struct {
	TopK          int
	Pause         time.Duration // between successive text lookups, 0 disables
	RelatedImages int
	Preprocess    preprocess.Options
}

// Orchestrator drives preprocessing, the classifier and enrichment.
type Orchestrator struct {
	labels  *labels.Resolver
	scorer  Scorer
	text    TextResolver
	images  ImageResolver
	cfg     Config
	log     logger.Logger
	metrics *metrics.ClassifierMetrics
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithMetrics records identification outcomes
func WithMetrics(m *metrics.ClassifierMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithSleeper replaces the pause between text lookups, mainly for tests
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// New creates an orchestrator. scorer may be nil when no model could be
// loaded; Identify then fails with classifier.ErrModelUnavailable.
func New(resolver *labels.Resolver, scorer Scorer, text TextResolver, images ImageResolver, cfg Config, opts ...Option) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Pause < 0 {
		cfg.Pause = 0
	}
	if cfg.RelatedImages <= 0 {
		cfg.RelatedImages = DefaultRelatedImages
	}
	if cfg.Preprocess.Crop == 0 {
		layout := cfg.Preprocess.Layout
		cfg.Preprocess = preprocess.DefaultOptions()
		if layout != "" {
			cfg.Preprocess.Layout = layout
		}
	}

	o := &Orchestrator{
		labels: resolver,
		scorer: scorer,
		text:   text,
		images: images,
		cfg:    cfg,
		sleep:  contextSleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Global().Module("identify")
	}
	return o
}

// Ready reports whether a classifier is attached.
func (o *Orchestrator) Ready() bool {
	return o.scorer != nil
}

// Labels returns the label resolver.
func (o *Orchestrator) Labels() *labels.Resolver {
	return o.labels
}

// Classify ranks scores and returns the top predictions, highest first.
// Scores that are not already a probability distribution go through softmax.
// Equal scores keep ascending index order.
func (o *Orchestrator) Classify(scores []float32) []Prediction {
	probs := toProbabilities(scores)

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case probs[a] > probs[b]:
			return -1
		case probs[a] < probs[b]:
			return 1
		default:
			return 0
		}
	})

	k := min(o.cfg.TopK, len(order))
	out := make([]Prediction, k)
	for i, idx := range order[:k] {
		out[i] = Prediction{
			Index:      idx,
			Label:      o.labels.Label(idx),
			Confidence: probs[idx],
		}
	}
	return out
}

func toProbabilities(scores []float32) []float64 {
	out := make([]float64, len(scores))
	if isDistribution(scores) {
		for i, s := range scores {
			out[i] = float64(s)
		}
		return out
	}
	return softmax(scores)
}

func isDistribution(scores []float32) bool {
	var sum float64
	for _, s := range scores {
		if s < 0 || math.IsNaN(float64(s)) {
			return false
		}
		sum += float64(s)
	}
	return math.Abs(sum-1) <= probabilityTolerance
}

// softmax subtracts the max before exponentiating.
func softmax(scores []float32) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	maxScore := math.Inf(-1)
	for _, s := range scores {
		maxScore = math.Max(maxScore, float64(s))
	}
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(float64(s) - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Enrich attaches descriptions to every prediction, pausing between lookups,
// and resolves related photos for the top one.
func (o *Orchestrator) Enrich(ctx context.Context, preds []Prediction) (*Result, error) {
	res := &Result{Predictions: slices.Clone(preds)}
	if len(preds) == 0 {
		return res, nil
	}
	res.TopLabel = preds[0].Label

	for i := range res.Predictions {
		if i > 0 && o.cfg.Pause > 0 {
			if err := o.sleep(ctx, o.cfg.Pause); err != nil {
				return res, err
			}
		}
		res.Predictions[i].Description = o.text.Resolve(ctx, res.Predictions[i].Label)
	}

	res.RelatedImages = o.images.ResolveRelated(ctx, res.TopLabel, o.cfg.RelatedImages)
	return res, nil
}

// Identify decodes the photo in r, classifies it and enriches the result.
func (o *Orchestrator) Identify(ctx context.Context, r io.Reader) (*Result, error) {
	if o.scorer == nil {
		o.metrics.RecordIdentification("unavailable", 0)
		return nil, classifier.ErrModelUnavailable
	}

	input, err := preprocess.Prepare(r, o.cfg.Preprocess)
	if err != nil {
		o.metrics.RecordIdentification("invalid_image", 0)
		return nil, err
	}

	scores, err := o.scorer.Predict(input)
	if err != nil {
		result := "error"
		if errors.Is(err, classifier.ErrModelUnavailable) {
			result = "unavailable"
		}
		o.metrics.RecordIdentification(result, 0)
		return nil, err
	}

	preds := o.Classify(scores)
	if len(preds) == 0 {
		o.metrics.RecordIdentification("error", 0)
		return nil, errors.Newf("classifier returned no scores").
			Component("identify").
			Category(errors.CategoryInference).
			Build()
	}
	o.metrics.RecordIdentification("ok", preds[0].Confidence)

	o.log.Debug("image classified",
		logger.String("top_label", preds[0].Label),
		logger.Float64("confidence", preds[0].Confidence))

	return o.Enrich(ctx, preds)
}

func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
