package intercept

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrStreamConsumed is yielded when Stream.All is ranged over a second time.
var ErrStreamConsumed = errors.New("intercept: stream already consumed")

// Interceptor creates stream sessions. The zero value is not usable; use New.
type Interceptor[E any] struct {
	cfg config
}

// New constructs an Interceptor.
//
// Defaults:
//   - unbounded observer queues
//   - slog.Default() for lifecycle logs
func New[E any](opts ...Option) *Interceptor[E] {
	var c config
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if c.queueLimit < 0 {
		c.queueLimit = 0
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return &Interceptor[E]{cfg: c}
}

// Intercept binds src to observers using a default Interceptor.
func Intercept[E any](ctx context.Context, src Source[E], observers ...Observer[E]) *Stream[E] {
	return New[E]().Intercept(ctx, src, observers...)
}

// Intercept binds src to observers. Nothing runs until Stream.All is ranged
// over. Nil observers are ignored.
func (i *Interceptor[E]) Intercept(ctx context.Context, src Source[E], observers ...Observer[E]) *Stream[E] {
	id := uuid.NewString()
	log := i.cfg.logger.With("component", "intercept", "session", id)

	workers := make([]*worker[E], 0, len(observers))
	for idx, o := range observers {
		if o == nil {
			continue
		}
		workers = append(workers, newWorker(observerName(o, idx), o, i.cfg, log))
	}

	return &Stream[E]{
		id:      id,
		ctx:     ctx,
		src:     src,
		workers: workers,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Stream is one interception session: a source, its observers and their
// per-observer queues and goroutines.
type Stream[E any] struct {
	id      string
	ctx     context.Context
	src     Source[E]
	workers []*worker[E]
	log     *slog.Logger

	consumed atomic.Bool
	wg       sync.WaitGroup
	done     chan struct{}

	mu    sync.Mutex
	state State
	err   error
}

// ID returns the session identifier used in logs.
func (s *Stream[E]) ID() string { return s.id }

// All returns the primary sequence. Each source event is yielded before it is
// handed to the observers; a source error is yielded unchanged and ends the
// sequence. All may be ranged over once.
func (s *Stream[E]) All() iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		var zero E
		if !s.consumed.CompareAndSwap(false, true) {
			yield(zero, ErrStreamConsumed)
			return
		}

		// workerCtx is cancelled once every worker has exited, which can
		// happen mid-iteration. Only the caller's ctx stops the source.
		workerCtx, cancel := context.WithCancel(s.ctx)
		s.start(workerCtx, cancel)

		finished := false
		defer func() {
			if finished {
				return
			}
			cancel()
			s.wg.Wait()
			s.setState(StateCancelled, nil)
			s.log.Debug("stream abandoned")
		}()

		start := time.Now()
		var n int
		for ev, err := range s.src {
			if err != nil {
				if s.ctx.Err() != nil {
					// Cancellation surfacing through the source.
					yield(zero, err)
					return
				}
				s.broadcast(item[E]{kind: itemError, err: err})
				s.setState(StateErrored, err)
				finished = true
				s.log.Debug("source failed", "events", n, "error", err)
				yield(zero, err)
				return
			}
			if cerr := s.ctx.Err(); cerr != nil {
				yield(zero, cerr)
				return
			}
			n++
			if !yield(ev, nil) {
				return
			}
			s.broadcast(item[E]{kind: itemEvent, event: ev})
		}

		if cerr := s.ctx.Err(); cerr != nil {
			yield(zero, cerr)
			return
		}
		s.broadcast(item[E]{kind: itemComplete})
		s.setState(StateCompleted, nil)
		finished = true
		s.log.Debug("source completed", "events", n, "elapsed", time.Since(start))
	}
}

func (s *Stream[E]) start(ctx context.Context, cancel context.CancelFunc) {
	s.setState(StateRunning, nil)
	s.log.Debug("stream started", "observers", len(s.workers))

	for _, w := range s.workers {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			w.run(ctx)
		}()
	}

	go func() {
		s.wg.Wait()
		cancel()
		close(s.done)
	}()
}

func (s *Stream[E]) broadcast(it item[E]) {
	for _, w := range s.workers {
		w.queue.push(it)
	}
}

func (s *Stream[E]) setState(st State, err error) {
	s.mu.Lock()
	s.state = st
	s.err = err
	s.mu.Unlock()
}

// State reports the session state and, when errored, the source error.
func (s *Stream[E]) State() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.err
}

// Done is closed once iteration has begun and every observer goroutine has
// exited.
func (s *Stream[E]) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until Done is closed or ctx ends.
func (s *Stream[E]) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of every observer in registration order.
func (s *Stream[E]) Stats() []ObserverStats {
	out := make([]ObserverStats, len(s.workers))
	for i, w := range s.workers {
		out[i] = w.stats()
	}
	return out
}
