package intercept

import (
	"context"
	"fmt"
)

// Observer receives a private copy of every event of a stream plus exactly one
// terminal notification.
type Observer[E any] interface {
	// Receive processes one event. An error retires this observer only.
	Receive(ctx context.Context, ev E) error

	// OnComplete is called once, after the last event, when the source
	// ended without failure.
	OnComplete(ctx context.Context)

	// OnError is called once when Receive failed or the source failed.
	OnError(ctx context.Context, err error)
}

// Named is implemented by observers that want a stable name in logs and stats.
type Named interface {
	Name() string
}

// State is the lifecycle state of an observer within a stream session, or of
// the session itself.
type State int

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateErrored
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateErrored || s == StateCancelled
}

// PanicError is reported to an observer's OnError when its Receive panicked.
type PanicError struct {
	Observer string
	Value    any
	Stack    []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("observer %s panicked: %v", e.Observer, e.Value)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are no-ops.
type ObserverFuncs[E any] struct {
	Label        string
	ReceiveFunc  func(ctx context.Context, ev E) error
	CompleteFunc func(ctx context.Context)
	ErrorFunc    func(ctx context.Context, err error)
}

func (f ObserverFuncs[E]) Name() string { return f.Label }

func (f ObserverFuncs[E]) Receive(ctx context.Context, ev E) error {
	if f.ReceiveFunc == nil {
		return nil
	}
	return f.ReceiveFunc(ctx, ev)
}

func (f ObserverFuncs[E]) OnComplete(ctx context.Context) {
	if f.CompleteFunc != nil {
		f.CompleteFunc(ctx)
	}
}

func (f ObserverFuncs[E]) OnError(ctx context.Context, err error) {
	if f.ErrorFunc != nil {
		f.ErrorFunc(ctx, err)
	}
}

func observerName[E any](o Observer[E], idx int) string {
	if n, ok := o.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return fmt.Sprintf("%T#%d", o, idx)
}
