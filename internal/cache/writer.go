package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"streamtap/internal/agent"
	"streamtap/internal/intercept"
	"streamtap/internal/security"
)

// Writer buffers a run's events and stores them under key once the run
// completes. A failed or abandoned run is not stored.
type Writer struct {
	store     Store
	key       string
	ttl       time.Duration
	sanitizer *security.Sanitizer
	log       *slog.Logger

	mu     sync.Mutex
	events []agent.Event
	model  string
	saved  bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) WriterOption {
	return func(w *Writer) {
		if ttl > 0 {
			w.ttl = ttl
		}
	}
}

// WithSanitizer masks PII in event text and tool input before it is stored.
func WithSanitizer(s *security.Sanitizer) WriterOption {
	return func(w *Writer) { w.sanitizer = s }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) WriterOption {
	return func(w *Writer) {
		if log != nil {
			w.log = log
		}
	}
}

// NewWriter returns an observer that caches one run under key.
func NewWriter(store Store, key string, opts ...WriterOption) *Writer {
	w := &Writer{store: store, key: key, ttl: DefaultTTL, log: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With("observer", "cache")
	return w
}

func (w *Writer) Name() string { return "cache" }

func (w *Writer) Receive(_ context.Context, ev agent.Event) error {
	if w.sanitizer.Enabled() {
		ev.Text = w.sanitizer.Sanitize(ev.Text)
		if len(ev.ToolInput) > 0 {
			ev.ToolInput = w.maskJSON(ev.ToolInput)
		}
	}
	w.mu.Lock()
	w.events = append(w.events, ev)
	if ev.Model != "" {
		w.model = ev.Model
	}
	w.mu.Unlock()
	return nil
}

// maskJSON sanitizes every string value in raw. Input that is not valid
// JSON is stored as a single masked JSON string.
func (w *Writer) maskJSON(raw json.RawMessage) json.RawMessage {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		out, _ := json.Marshal(w.sanitizer.Sanitize(string(raw)))
		return out
	}
	out, err := json.Marshal(w.maskValue(v))
	if err != nil {
		return raw
	}
	return out
}

func (w *Writer) maskValue(v any) any {
	switch t := v.(type) {
	case string:
		return w.sanitizer.Sanitize(t)
	case map[string]any:
		for k, e := range t {
			t[k] = w.maskValue(e)
		}
	case []any:
		for i, e := range t {
			t[i] = w.maskValue(e)
		}
	}
	return v
}

func (w *Writer) OnComplete(ctx context.Context) {
	w.mu.Lock()
	events := w.events
	w.events = nil
	model := w.model
	w.mu.Unlock()

	if len(events) == 0 {
		return
	}
	now := time.Now()
	e := &Entry{
		Key:       w.key,
		Model:     model,
		Events:    events,
		CreatedAt: now,
		ExpiresAt: now.Add(w.ttl),
	}
	if err := w.store.Put(ctx, e); err != nil {
		w.log.Warn("failed to store run", "key", w.key, "error", err)
		return
	}
	w.mu.Lock()
	w.saved = true
	w.mu.Unlock()
	w.log.Debug("run cached", "key", w.key, "events", len(events))
}

func (w *Writer) OnError(_ context.Context, err error) {
	w.mu.Lock()
	w.events = nil
	w.mu.Unlock()
	w.log.Debug("run failed, not cached", "key", w.key, "error", err)
}

// Saved reports whether the run was stored.
func (w *Writer) Saved() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.saved
}

// Replay returns a source that yields the cached events in their original
// order. The events are copies; the entry is not modified.
func Replay(e *Entry) intercept.Source[agent.Event] {
	events := make([]agent.Event, len(e.Events))
	copy(events, e.Events)
	return intercept.FromSlice(events)
}
