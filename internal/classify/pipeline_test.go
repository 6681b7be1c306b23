package classify_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"

	"imageclass/internal/classify"
	"imageclass/internal/model"
)

type fakeRunner struct {
	run func(ctx context.Context, input []float32) ([]float32, error)
}

func (f *fakeRunner) Run(ctx context.Context, input []float32) ([]float32, error) {
	return f.run(ctx, input)
}

var testLabels = []string{"cat", "dog", "bird"}

func newTestPipeline(t *testing.T, runner classify.Runner, timeout time.Duration) *classify.Pipeline {
	return classify.NewPipeline(logs.NewTestingLog(t), runner, testLabels, 8, timeout, nil)
}

func TestPipelineClassifyTensor(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, input []float32) ([]float32, error) {
		return []float32{0.1, 0.9, 0.3}, nil
	}}
	p := newTestPipeline(t, runner, 0)

	result, err := p.ClassifyTensor(context.Background(), []float32{0})
	require.NoError(t, err)
	require.Equal(t, "dog", result.Class)
	require.Equal(t, float32(0.9), result.Score)

	snap := p.Tracker().Current()
	require.Equal(t, classify.StateResult, snap.State)
	require.Equal(t, result, snap.Result)
}

func TestPipelineClassifyImage(t *testing.T) {
	const size = 8
	var gotInput []float32
	runner := &fakeRunner{run: func(ctx context.Context, input []float32) ([]float32, error) {
		gotInput = input
		return []float32{4.0, 1.0, 2.0}, nil
	}}
	p := newTestPipeline(t, runner, 0)

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, color.RGBA{G: 255, A: 255})
		}
	}

	result, err := p.ClassifyImage(context.Background(), img)
	require.NoError(t, err)
	require.Equal(t, "cat", result.Class)

	// The engine saw a full CHW tensor with the green plane lit.
	require.Len(t, gotInput, 3*size*size)
	plane := size * size
	require.Equal(t, float32(0), gotInput[0])
	require.Equal(t, float32(1), gotInput[plane])
	require.Equal(t, float32(0), gotInput[2*plane])
}

func TestPipelineStaleResult(t *testing.T) {
	enteredA := make(chan struct{})
	releaseA := make(chan struct{})
	runner := &fakeRunner{run: func(ctx context.Context, input []float32) ([]float32, error) {
		if input[0] == 1 {
			close(enteredA)
			<-releaseA
			return []float32{9, 0, 0}, nil // cat
		}
		return []float32{0, 9, 0}, nil // dog
	}}
	p := newTestPipeline(t, runner, time.Minute)

	var wg sync.WaitGroup
	var resultA *model.ClassificationResult
	var errA error
	wg.Add(1)
	go func() {
		defer wg.Done()
		resultA, errA = p.ClassifyTensor(context.Background(), []float32{1})
	}()
	<-enteredA

	// B starts after A, finishes first.
	resultB, err := p.ClassifyTensor(context.Background(), []float32{2})
	require.NoError(t, err)
	require.Equal(t, "dog", resultB.Class)

	// A completes last. Its caller still gets its own answer, but the
	// displayed state must keep B's.
	close(releaseA)
	wg.Wait()
	require.NoError(t, errA)
	require.Equal(t, "cat", resultA.Class)

	snap := p.Tracker().Current()
	require.Equal(t, classify.StateResult, snap.State)
	require.Equal(t, "dog", snap.Result.Class)
}

func TestPipelineTimeout(t *testing.T) {
	// The fake mirrors the engine's contract: an expired ctx surfaces as
	// ErrRunTimeout.
	runner := &fakeRunner{run: func(ctx context.Context, input []float32) ([]float32, error) {
		select {
		case <-time.After(5 * time.Second):
			return []float32{1, 0, 0}, nil
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", model.ErrRunTimeout, ctx.Err())
		}
	}}
	p := newTestPipeline(t, runner, 20*time.Millisecond)

	_, err := p.ClassifyTensor(context.Background(), []float32{0})
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrRunTimeout))

	snap := p.Tracker().Current()
	require.Equal(t, classify.StateError, snap.State)
}

func TestPipelineEngineErrorLeavesErrorState(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, input []float32) ([]float32, error) {
		return nil, fmt.Errorf("%w: shape mismatch", model.ErrEngineRun)
	}}
	p := newTestPipeline(t, runner, 0)

	_, err := p.ClassifyTensor(context.Background(), []float32{0})
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrEngineRun))

	snap := p.Tracker().Current()
	require.Equal(t, classify.StateError, snap.State)
	require.Error(t, snap.Err)
}
