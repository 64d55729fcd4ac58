package intercept

import "context"

// Wrapper binds a fixed observer set so callers only pass the source.
type Wrapper[E any] struct {
	interceptor *Interceptor[E]
	observers   []Observer[E]
}

// NewWrapper returns a Wrapper for observers. A nil interceptor uses New[E]().
func NewWrapper[E any](i *Interceptor[E], observers ...Observer[E]) *Wrapper[E] {
	if i == nil {
		i = New[E]()
	}
	bound := make([]Observer[E], len(observers))
	copy(bound, observers)
	return &Wrapper[E]{interceptor: i, observers: bound}
}

// Wrap is Intercept(ctx, src, observers...) with the bound observers.
func (w *Wrapper[E]) Wrap(ctx context.Context, src Source[E]) *Stream[E] {
	return w.interceptor.Intercept(ctx, src, w.observers...)
}

// Observers returns the bound observers.
func (w *Wrapper[E]) Observers() []Observer[E] {
	out := make([]Observer[E], len(w.observers))
	copy(out, w.observers)
	return out
}
