package channel

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"streamtap/internal/agent"
)

// Console renders agent events as terminal text.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	inDelta bool
}

// NewConsole returns a renderer writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Render writes one event.
func (c *Console) Render(ev agent.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.Kind != agent.KindTextDelta && c.inDelta {
		fmt.Fprintln(c.w)
		c.inDelta = false
	}

	switch ev.Kind {
	case agent.KindTextDelta:
		fmt.Fprint(c.w, ev.Text)
		c.inDelta = true
	case agent.KindText:
		fmt.Fprintln(c.w, ev.Text)
	case agent.KindToolUse:
		fmt.Fprintf(c.w, "→ %s %s\n", ev.ToolName, oneLine(string(ev.ToolInput), 120))
	case agent.KindToolResult:
		mark := "←"
		if ev.IsError {
			mark = "✗"
		}
		fmt.Fprintf(c.w, "%s %s\n", mark, oneLine(ev.Text, 200))
	case agent.KindResult:
		var in, out int
		if ev.Usage != nil {
			in, out = ev.Usage.InputTokens, ev.Usage.OutputTokens
		}
		fmt.Fprintf(c.w, "[%s · %d turns · %d in / %d out tokens · %s]\n",
			ev.StopReason, ev.Turn, in, out, ev.Duration.Round(time.Millisecond))
	}
}

func (c *Console) Name() string { return "console" }

// Receive renders ev, so a Console can also watch a stream as an observer.
func (c *Console) Receive(_ context.Context, ev agent.Event) error {
	c.Render(ev)
	return nil
}

func (c *Console) OnComplete(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inDelta {
		fmt.Fprintln(c.w)
		c.inDelta = false
	}
}

func (c *Console) OnError(_ context.Context, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inDelta {
		fmt.Fprintln(c.w)
		c.inDelta = false
	}
	fmt.Fprintf(c.w, "error: %v\n", err)
}

// Send prints an outbound message.
func (c *Console) Send(_ context.Context, msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "\n[streamtap]: %s\n", msg.Text)
	return err
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
