package intercept

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Debug counts events and logs each one at debug level.
type Debug[E any] struct {
	log *slog.Logger

	mu    sync.Mutex
	count int
	start time.Time
}

// NewDebug constructs a Debug observer. A nil logger uses slog.Default().
func NewDebug[E any](log *slog.Logger) *Debug[E] {
	if log == nil {
		log = slog.Default()
	}
	return &Debug[E]{log: log.With("observer", "debug")}
}

func (d *Debug[E]) Name() string { return "debug" }

func (d *Debug[E]) Receive(ctx context.Context, ev E) error {
	d.mu.Lock()
	if d.count == 0 {
		d.start = time.Now()
	}
	d.count++
	n := d.count
	d.mu.Unlock()

	d.log.DebugContext(ctx, "event", "n", n, "type", fmt.Sprintf("%T", ev))
	return nil
}

func (d *Debug[E]) OnComplete(ctx context.Context) {
	n, start := d.Count(), d.StartTime()
	d.log.InfoContext(ctx, "stream complete", "events", n, "elapsed", sinceOrZero(start))
}

func (d *Debug[E]) OnError(ctx context.Context, err error) {
	d.log.WarnContext(ctx, "stream error", "events", d.Count(), "error", err)
}

// Count returns the number of events received so far.
func (d *Debug[E]) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// StartTime returns when the first event arrived, or the zero time.
func (d *Debug[E]) StartTime() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.start
}

func sinceOrZero(t time.Time) time.Duration {
	if t.IsZero() {
		return 0
	}
	return time.Since(t)
}
