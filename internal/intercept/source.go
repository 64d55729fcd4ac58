package intercept

import (
	"context"
	"iter"
	"slices"
)

// Source is a single-pass producer of events. A non-nil error is the
// source's failure and must be the last pair it yields.
type Source[E any] func(yield func(E, error) bool)

// FromSeq adapts an infallible sequence.
func FromSeq[E any](seq iter.Seq[E]) Source[E] {
	return func(yield func(E, error) bool) {
		for ev := range seq {
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// FromSlice yields the elements of events in order.
func FromSlice[E any](events []E) Source[E] {
	return FromSeq(slices.Values(events))
}

// FromChannel yields values received from ch until it is closed. If ctx ends
// first, ctx.Err() is yielded.
func FromChannel[E any](ctx context.Context, ch <-chan E) Source[E] {
	return func(yield func(E, error) bool) {
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if !yield(ev, nil) {
					return
				}
			case <-ctx.Done():
				var zero E
				yield(zero, ctx.Err())
				return
			}
		}
	}
}

// Failing yields events and then fails with err. A nil err behaves like
// FromSlice.
func Failing[E any](events []E, err error) Source[E] {
	return func(yield func(E, error) bool) {
		for _, ev := range events {
			if !yield(ev, nil) {
				return
			}
		}
		if err != nil {
			var zero E
			yield(zero, err)
		}
	}
}
