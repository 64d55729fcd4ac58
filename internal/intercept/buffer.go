package intercept

import (
	"context"
	"sync"
)

// Buffer retains every received event in arrival order.
type Buffer[E any] struct {
	mu     sync.Mutex
	events []E
	state  State
	err    error
}

// NewBuffer constructs an empty Buffer.
func NewBuffer[E any]() *Buffer[E] {
	return &Buffer[E]{}
}

func (b *Buffer[E]) Name() string { return "buffer" }

func (b *Buffer[E]) Receive(_ context.Context, ev E) error {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.state = StateRunning
	b.mu.Unlock()
	return nil
}

func (b *Buffer[E]) OnComplete(context.Context) {
	b.mu.Lock()
	b.state = StateCompleted
	b.mu.Unlock()
}

func (b *Buffer[E]) OnError(_ context.Context, err error) {
	b.mu.Lock()
	b.state = StateErrored
	b.err = err
	b.mu.Unlock()
}

// Events returns a snapshot copy of the events received so far.
func (b *Buffer[E]) Events() []E {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]E, len(b.events))
	copy(cp, b.events)
	return cp
}

// Len returns the number of events received so far.
func (b *Buffer[E]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// State returns the buffer's lifecycle state.
func (b *Buffer[E]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Err returns the error passed to OnError, if any.
func (b *Buffer[E]) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
