package classify

import (
	"errors"
	"sync"

	"imageclass/internal/model"
)

// ErrStaleResult is an internal signal that a completed request was
// superseded by a newer one and its result was dropped. It is never shown
// to the user.
var ErrStaleResult = errors.New("stale result discarded")

type State int

const (
	StateIdle State = iota
	StateBusy
	StateResult // idle, with the last request's result available
	StateError  // idle, with the last request's error available
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateResult:
		return "result"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Snapshot is one observation of the tracker: the current state plus the
// most recent result or error. Generation identifies the request that wrote
// the result.
type Snapshot struct {
	State      State
	Generation uint64
	Result     *model.ClassificationResult
	Err        error
}

// Tracker owns the single "current result" slot. Each request gets a
// monotonically increasing generation from Begin; only the request holding
// the newest generation may write the slot on completion, so a slow request
// can never overwrite a newer one's result.
//
// The optional onChange callback fires exactly on observable changes, so
// a display layer never has to poll.
type Tracker struct {
	mu       sync.Mutex
	gen      uint64
	last     Snapshot
	onChange func(Snapshot)
}

func NewTracker(onChange func(Snapshot)) *Tracker {
	return &Tracker{
		last:     Snapshot{State: StateIdle},
		onChange: onChange,
	}
}

// Begin registers a new request and returns its generation.
func (t *Tracker) Begin() uint64 {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	changed := t.last.State != StateBusy
	t.last.State = StateBusy
	snap := t.last
	t.mu.Unlock()
	if changed {
		t.notify(snap)
	}
	return gen
}

// Finish completes the request identified by gen. If a newer request has
// begun since, the outcome is dropped and Finish returns ErrStaleResult;
// the slot keeps whatever the newest request will write (or has written).
func (t *Tracker) Finish(gen uint64, result *model.ClassificationResult, err error) error {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return ErrStaleResult
	}
	if err != nil {
		t.last = Snapshot{State: StateError, Generation: gen, Err: err}
	} else {
		t.last = Snapshot{State: StateResult, Generation: gen, Result: result}
	}
	snap := t.last
	t.mu.Unlock()
	t.notify(snap)
	return nil
}

// Current returns the latest snapshot.
func (t *Tracker) Current() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *Tracker) notify(snap Snapshot) {
	if t.onChange != nil {
		t.onChange(snap)
	}
}
