package classify

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/cyclopcam/logs"

	"imageclass/internal/model"
	"imageclass/internal/preprocess"
)

// DefaultRunTimeout bounds a single forward pass. The original system had no
// timeout at all; a hung engine would wedge the request forever.
const DefaultRunTimeout = 30 * time.Second

// Runner executes one forward pass. *model.Engine implements it; tests
// substitute fakes.
type Runner interface {
	Run(ctx context.Context, input []float32) ([]float32, error)
}

// Pipeline runs the whole classification flow for one request: preprocess
// the image into a tensor, invoke the engine, decode the winning class.
// Requests queue on the engine's own lock; the tracker's generation counter
// keeps a slow request from overwriting a newer one's displayed result.
type Pipeline struct {
	log     logs.Log
	engine  Runner
	labels  []string
	size    int
	timeout time.Duration
	tracker *Tracker
}

// NewPipeline wires a pipeline. labels must already be validated against the
// model's output length. onChange may be nil. A timeout of zero selects
// DefaultRunTimeout.
func NewPipeline(log logs.Log, engine Runner, labels []string, imageSize int, timeout time.Duration, onChange func(Snapshot)) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	return &Pipeline{
		log:     log,
		engine:  engine,
		labels:  labels,
		size:    imageSize,
		timeout: timeout,
		tracker: NewTracker(onChange),
	}
}

func (p *Pipeline) Tracker() *Tracker {
	return p.tracker
}

func (p *Pipeline) Labels() []string {
	return p.labels
}

// ClassifyImage classifies a decoded image. The request is Busy from here
// until completion; any failure leaves the tracker in a non-busy state.
func (p *Pipeline) ClassifyImage(ctx context.Context, img image.Image) (*model.ClassificationResult, error) {
	gen := p.tracker.Begin()
	tensor, err := preprocess.ImageToTensor(img, p.size)
	if err != nil {
		return p.complete(gen, nil, err)
	}
	return p.run(ctx, gen, tensor)
}

// ClassifyTensor classifies an already-preprocessed tensor.
func (p *Pipeline) ClassifyTensor(ctx context.Context, tensor []float32) (*model.ClassificationResult, error) {
	return p.run(ctx, p.tracker.Begin(), tensor)
}

func (p *Pipeline) run(ctx context.Context, gen uint64, tensor []float32) (*model.ClassificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	output, err := p.engine.Run(ctx, tensor)
	if err != nil {
		return p.complete(gen, nil, err)
	}
	result, err := Decode(output, p.labels)
	return p.complete(gen, result, err)
}

// complete records the outcome in the tracker and hands it back to the
// caller. A superseded request still receives its own result; only the
// shared current-result slot ignores it.
func (p *Pipeline) complete(gen uint64, result *model.ClassificationResult, err error) (*model.ClassificationResult, error) {
	if trackErr := p.tracker.Finish(gen, result, err); errors.Is(trackErr, ErrStaleResult) {
		p.log.Infof("Request %v superseded, result dropped from display", gen)
	}
	if err != nil {
		p.log.Errorf("Classification request %v failed: %v", gen, err)
		return nil, err
	}
	return result, nil
}
