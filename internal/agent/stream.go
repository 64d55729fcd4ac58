package agent

import (
	"context"
	"strings"

	"streamtap/internal/intercept"
	"streamtap/internal/llm"
)

// Stream returns a source for one streamed completion without tools or
// history: a text-delta event per chunk, then a result event with the full
// text and token usage.
func (a *Agent) Stream(ctx context.Context, prompt string) intercept.Source[Event] {
	return func(yield func(Event, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		r := a.newRun()
		r.turn = 1
		req := &llm.ChatRequest{
			Messages:     []llm.Message{{Role: "user", Content: prompt}},
			MaxTokens:    a.cfg.MaxTokens,
			Temperature:  a.cfg.Temperature,
			SystemPrompt: a.cfg.SystemPrompt,
		}

		var text strings.Builder
		for chunk, err := range llm.Events(ctx, a.Provider(), req) {
			if err != nil {
				yield(Event{}, err)
				return
			}
			if chunk.Usage != nil {
				r.usage = *chunk.Usage
			}
			if chunk.ContentDelta == "" {
				continue
			}
			text.WriteString(chunk.ContentDelta)
			ev := r.event(KindTextDelta)
			ev.Text = chunk.ContentDelta
			if !yield(ev, nil) {
				return
			}
		}
		if err := ctx.Err(); err != nil {
			yield(Event{}, err)
			return
		}
		yield(r.result(text.String(), StopEndTurn), nil)
	}
}
