package channel

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"streamtap/internal/agent"
)

const failureNotice = "Sorry, I encountered an error processing your message. Please try again."

// Relay collects a run's final answer and sends it to a channel once the run
// completes. A failed run sends a short failure notice instead.
type Relay struct {
	ch     Channel
	chatID string
	log    *slog.Logger

	mu     sync.Mutex
	text   strings.Builder
	result string
	sent   bool
}

// NewRelay returns an observer delivering to ch. chatID may be empty to use
// the channel's default destination.
func NewRelay(ch Channel, chatID string, log *slog.Logger) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{ch: ch, chatID: chatID, log: log.With("observer", "relay", "channel", ch.Name())}
}

func (r *Relay) Name() string { return "relay:" + r.ch.Name() }

func (r *Relay) Receive(_ context.Context, ev agent.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch ev.Kind {
	case agent.KindTextDelta:
		r.text.WriteString(ev.Text)
	case agent.KindResult:
		r.result = ev.Text
	}
	return nil
}

// Text returns what would be sent on completion.
func (r *Relay) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.result != "" {
		return r.result
	}
	return r.text.String()
}

func (r *Relay) OnComplete(ctx context.Context) {
	text := r.Text()
	if text == "" {
		return
	}
	r.send(ctx, text)
}

func (r *Relay) OnError(ctx context.Context, err error) {
	r.log.Debug("run failed, sending notice", "error", err)
	r.send(ctx, failureNotice)
}

func (r *Relay) send(ctx context.Context, text string) {
	if err := r.ch.Send(ctx, OutboundMessage{ChatID: r.chatID, Text: text}); err != nil {
		r.log.Warn("delivery failed", "error", err)
		return
	}
	r.mu.Lock()
	r.sent = true
	r.mu.Unlock()
}

// Sent reports whether a message was delivered.
func (r *Relay) Sent() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent
}
