// Package intercept fans a single-pass event source out to independent
// observers without slowing down the primary consumer.
//
// # Interceptor
//
// Interceptor.Intercept binds a Source to a set of observers and returns a
// Stream. Ranging over Stream.All re-emits every source event to the caller
// as soon as it is produced; each observer receives its own copy through a
// private queue drained by a dedicated goroutine.
//
//	st := intercept.Intercept(ctx, src, metrics, cache, intercept.NewDebug[Event](logger))
//	for ev, err := range st.All() {
//		if err != nil {
//			return err // the source's own error, unwrapped
//		}
//		render(ev)
//	}
//	st.Wait(ctx) // optional: join the observers
//
// Guarantees:
//   - The caller sees the full source sequence in order and is never delayed
//     by observer work; queue pushes are O(1) and never block.
//   - Each observer sees the source prefix in order, without gaps or
//     duplicates, until it reaches a terminal state.
//   - A Receive error (or panic) retires only that observer: it gets OnError
//     and nothing else.
//   - A source error is yielded to the caller verbatim and reported to every
//     live observer through OnError, after all earlier events.
//   - Breaking out of the range loop, or cancelling ctx, cancels the session
//     and waits for every observer goroutine before returning. No terminal
//     callbacks are made on that path.
//
// # Queues
//
// Observer queues are unbounded by default. WithQueueLimit bounds them with a
// DropNewest or DropOldest policy; terminal signals are never dropped and
// drops are reported through Stream.Stats. There is no blocking policy: a
// bound applies to observer queues only, never to the primary path.
package intercept
