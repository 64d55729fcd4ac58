package intercept

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// ObserverStats is a point-in-time view of one observer within a session.
type ObserverStats struct {
	Name     string
	State    State
	Err      error
	Received uint64 // Receive calls made, including a failing one
	Pending  int
	Dropped  uint64
}

type worker[E any] struct {
	name  string
	obs   Observer[E]
	queue *queue[E]
	log   *slog.Logger

	mu       sync.Mutex
	state    State
	err      error
	received uint64
}

func newWorker[E any](name string, obs Observer[E], cfg config, log *slog.Logger) *worker[E] {
	return &worker[E]{
		name:  name,
		obs:   obs,
		queue: newQueue[E](cfg.queueLimit, cfg.policy),
		log:   log.With("observer", name),
	}
}

func (w *worker[E]) run(ctx context.Context) {
	w.setState(StateRunning, nil)

	for {
		it, ok := w.queue.pop(ctx)
		if !ok {
			w.queue.close()
			w.setState(StateCancelled, nil)
			return
		}

		switch it.kind {
		case itemEvent:
			w.mu.Lock()
			w.received++
			w.mu.Unlock()

			err := w.receive(ctx, it.event)
			if err == nil {
				continue
			}
			w.queue.close()
			if ctx.Err() != nil {
				w.setState(StateCancelled, nil)
				return
			}
			w.log.Warn("observer failed, retiring", "error", err)
			w.terminal(func() { w.obs.OnError(ctx, err) })
			w.setState(StateErrored, err)
			return

		case itemComplete:
			w.queue.close()
			w.terminal(func() { w.obs.OnComplete(ctx) })
			w.setState(StateCompleted, nil)
			return

		case itemError:
			w.queue.close()
			w.terminal(func() { w.obs.OnError(ctx, it.err) })
			w.setState(StateErrored, it.err)
			return
		}
	}
}

func (w *worker[E]) receive(ctx context.Context, ev E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Observer: w.name, Value: r, Stack: debug.Stack()}
		}
	}()
	return w.obs.Receive(ctx, ev)
}

func (w *worker[E]) terminal(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("observer panicked in terminal callback", "panic", r)
		}
	}()
	fn()
}

func (w *worker[E]) setState(s State, err error) {
	w.mu.Lock()
	w.state = s
	w.err = err
	w.mu.Unlock()
}

func (w *worker[E]) stats() ObserverStats {
	pending, dropped := w.queue.stats()
	w.mu.Lock()
	defer w.mu.Unlock()
	return ObserverStats{
		Name:     w.name,
		State:    w.state,
		Err:      w.err,
		Received: w.received,
		Pending:  pending,
		Dropped:  dropped,
	}
}
