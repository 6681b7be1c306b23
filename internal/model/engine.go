package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Error kinds surfaced by the engine. All of them are local to a single
// request; none of them crash the process.
var (
	// ErrEngineLoad means the model artifact is missing or invalid. The
	// session is cleared so the next request retries the load.
	ErrEngineLoad = errors.New("engine load failed")
	// ErrEngineRun means the forward pass failed or its input was malformed.
	ErrEngineRun = errors.New("engine run failed")
	// ErrRunTimeout means the caller's deadline expired while the forward
	// pass was still executing.
	ErrRunTimeout = errors.New("engine run timed out")
)

// Engine wraps an ONNX Runtime session for a single exported model. The
// session is created lazily on first Run and reused across requests. A mutex
// guards initialization so concurrent first requests don't double-initialize,
// and serializes forward passes since the underlying tensors are shared.
type Engine struct {
	modelPath string
	meta      *Metadata

	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	envReady     bool
	closed       bool
}

// NewEngine prepares an engine for the model at modelPath. The model file is
// not touched until the first Run, so a missing artifact surfaces as an
// ErrEngineLoad on that request rather than at startup.
func NewEngine(modelPath string, meta *Metadata) *Engine {
	return &Engine{
		modelPath: modelPath,
		meta:      meta,
	}
}

func (e *Engine) Meta() *Metadata {
	return e.meta
}

// ensureSessionLocked creates the ONNX session if it doesn't exist yet.
// Callers must hold e.mu. A failed load leaves the session nil, so the next
// request tries again.
func (e *Engine) ensureSessionLocked() error {
	if e.session != nil {
		return nil
	}
	if !e.envReady {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("%w: initializing ONNX environment: %v", ErrEngineLoad, err)
		}
		e.envReady = true
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(e.meta.InputShape...))
	if err != nil {
		return fmt.Errorf("%w: creating input tensor: %v", ErrEngineLoad, err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(e.meta.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return fmt.Errorf("%w: creating output tensor: %v", ErrEngineLoad, err)
	}

	session, err := ort.NewAdvancedSession(e.modelPath,
		[]string{e.meta.InputName}, []string{e.meta.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return fmt.Errorf("%w: creating session for %v: %v", ErrEngineLoad, e.modelPath, err)
	}

	e.inputTensor = inputTensor
	e.outputTensor = outputTensor
	e.session = session
	return nil
}

type runOutcome struct {
	output []float32
	err    error
}

// Run executes one forward pass. The input must be the flattened input
// tensor, exactly meta.InputLen() values. The returned slice is a copy; the
// caller owns it.
//
// The forward pass itself cannot be interrupted, so when ctx expires Run
// returns ErrRunTimeout but the session stays locked until the abandoned
// pass actually finishes. A later Run can never race an abandoned one.
func (e *Engine) Run(ctx context.Context, input []float32) ([]float32, error) {
	if len(input) != e.meta.InputLen() {
		return nil, fmt.Errorf("%w: input has %v values, model expects %v",
			ErrEngineRun, len(input), e.meta.InputLen())
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: engine is closed", ErrEngineRun)
	}
	if err := e.ensureSessionLocked(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	copy(e.inputTensor.GetData(), input)

	done := make(chan runOutcome, 1)
	go func() {
		defer e.mu.Unlock()
		if err := e.session.Run(); err != nil {
			done <- runOutcome{err: fmt.Errorf("%w: %v", ErrEngineRun, err)}
			return
		}
		raw := e.outputTensor.GetData()
		out := make([]float32, len(raw))
		copy(out, raw)
		done <- runOutcome{output: out}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrRunTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("%w: cancelled: %v", ErrRunTimeout, ctx.Err())
	case outcome := <-done:
		return outcome.output, outcome.err
	}
}

// Close tears down the session and the ONNX environment. Safe to call once,
// after all requests have drained.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.inputTensor != nil {
		e.inputTensor.Destroy()
		e.inputTensor = nil
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	if e.envReady {
		ort.DestroyEnvironment()
		e.envReady = false
	}
}
