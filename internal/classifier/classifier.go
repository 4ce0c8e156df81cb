// Package classifier runs the pretrained flower classifier through the
// TensorFlow Lite C runtime.
package classifier

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	tflite "github.com/tphakala/go-tflite"

	"github.com/petalnet/petalnet-go/internal/errors"
	"github.com/petalnet/petalnet-go/internal/logger"
	"github.com/petalnet/petalnet-go/internal/observability/metrics"
)

// ErrModelUnavailable is returned by Predict when no model is loaded.
var ErrModelUnavailable = errors.NewStd("model unavailable")

// Options configures the interpreter.
type Options struct {
	Threads int // 0 uses every CPU
	Log     logger.Logger
	Metrics *metrics.ClassifierMetrics
}

// Model wraps a loaded interpreter. The interpreter is not safe for
// concurrent Invoke, so Predict serializes callers.
type Model struct {
	mu          sync.Mutex
	model       *tflite.Model
	interpreter *tflite.Interpreter
	path        string
	inputLen    int
	classes     int
	log         logger.Logger
	metrics     *metrics.ClassifierMetrics
}

// Load reads the checkpoint at path and allocates its tensors.
func Load(path string, opts Options) (*Model, error) {
	start := time.Now()
	log := opts.Log
	if log == nil {
		log = logger.Global().Module("classifier")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		opts.Metrics.SetModelLoaded(false)
		return nil, errors.New(err).
			Component("classifier").
			Category(errors.CategoryModelLoad).
			Context("model_path", path).
			Timing("model-load", time.Since(start)).
			Build()
	}

	model := tflite.NewModel(data)
	if model == nil {
		opts.Metrics.SetModelLoaded(false)
		return nil, errors.New(fmt.Errorf("cannot load TensorFlow Lite model")).
			Component("classifier").
			Category(errors.CategoryModelInit).
			Context("model_path", path).
			Context("model_size_mb", len(data)/1024/1024).
			Build()
	}

	threads := threadCount(opts.Threads)
	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)
	options.SetErrorReporter(func(msg string, _ any) {
		log.Error("TFLite error", logger.String("message", msg))
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		opts.Metrics.SetModelLoaded(false)
		return nil, errors.Newf("cannot create interpreter").
			Component("classifier").
			Category(errors.CategoryModelInit).
			Context("model_path", path).
			Build()
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		opts.Metrics.SetModelLoaded(false)
		return nil, errors.Newf("tensor allocation failed: %v", status).
			Component("classifier").
			Category(errors.CategoryModelInit).
			Context("model_path", path).
			Build()
	}

	m := &Model{
		model:       model,
		interpreter: interpreter,
		path:        path,
		log:         log,
		metrics:     opts.Metrics,
	}
	if in := interpreter.GetInputTensor(0); in != nil {
		m.inputLen = len(in.Float32s())
	}
	if out := interpreter.GetOutputTensor(0); out != nil {
		m.classes = out.Dim(out.NumDims() - 1)
	}

	// model bytes are copied by the runtime
	runtime.GC()

	opts.Metrics.SetModelLoaded(true)
	log.Info("classifier model initialized",
		logger.String("model", path),
		logger.Int("threads", threads),
		logger.Int("input_len", m.inputLen),
		logger.Int("classes", m.classes),
		logger.Duration("load_time", time.Since(start)))
	return m, nil
}

func threadCount(configured int) int {
	cpus := runtime.NumCPU()
	if configured <= 0 || configured > cpus {
		return cpus
	}
	return configured
}

// InputLen is the number of float32 values the input tensor holds.
func (m *Model) InputLen() int { return m.inputLen }

// Classes is the length of the output score vector.
func (m *Model) Classes() int { return m.classes }

// Path returns the checkpoint path.
func (m *Model) Path() string { return m.path }

// Predict runs one inference and returns the raw output scores.
func (m *Model) Predict(input []float32) ([]float32, error) {
	if m == nil || m.interpreter == nil {
		return nil, ErrModelUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(input) != m.inputLen {
		return nil, errors.Newf("input has %d values, model expects %d", len(input), m.inputLen).
			Component("classifier").
			Category(errors.CategoryInference).
			Build()
	}

	inputTensor := m.interpreter.GetInputTensor(0)
	if inputTensor == nil {
		return nil, errors.Newf("cannot get input tensor").
			Component("classifier").
			Category(errors.CategoryInference).
			Build()
	}
	copy(inputTensor.Float32s(), input)

	start := time.Now()
	if status := m.interpreter.Invoke(); status != tflite.OK {
		return nil, errors.Newf("tensor invoke failed: %v", status).
			Component("classifier").
			Category(errors.CategoryInference).
			Build()
	}
	m.metrics.ObserveInference(time.Since(start).Seconds())

	outputTensor := m.interpreter.GetOutputTensor(0)
	if outputTensor == nil {
		return nil, errors.Newf("cannot get output tensor").
			Component("classifier").
			Category(errors.CategoryInference).
			Build()
	}
	scores := make([]float32, outputTensor.Dim(outputTensor.NumDims()-1))
	copy(scores, outputTensor.Float32s())
	return scores, nil
}

// Close releases the interpreter and the model.
func (m *Model) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interpreter != nil {
		m.interpreter.Delete()
		m.interpreter = nil
	}
	if m.model != nil {
		m.model.Delete()
		m.model = nil
	}
}
