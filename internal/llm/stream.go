package llm

import (
	"context"
	"encoding/json"
	"strings"

	"streamtap/internal/intercept"
)

// Events runs a streaming completion and exposes it as an intercept source.
// An in-band StreamEvent.Error becomes the source error; the failing event
// itself is not yielded. The producer is released when the source returns,
// including when the caller stops ranging early.
func Events(ctx context.Context, p Provider, req *ChatRequest) intercept.Source[StreamEvent] {
	return func(yield func(StreamEvent, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		ch, err := p.StreamChat(ctx, req)
		if err != nil {
			yield(StreamEvent{}, err)
			return
		}
		for ev, err := range intercept.FromChannel(ctx, ch) {
			if err == nil && ev.Error != nil {
				err = ev.Error
			}
			if err != nil {
				yield(StreamEvent{}, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// send delivers evt unless ctx ends first.
func send(ctx context.Context, ch chan<- StreamEvent, evt StreamEvent) bool {
	select {
	case ch <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}

type toolCallBuilder struct {
	id   string
	name string
	args strings.Builder
}

func (b *toolCallBuilder) build() ToolCall {
	args := b.args.String()
	if args == "" {
		args = "{}"
	}
	return ToolCall{ID: b.id, Name: b.name, Arguments: json.RawMessage(args)}
}
