package memory

import (
	"context"
	"log/slog"
	"sync"

	"streamtap/internal/agent"
	"streamtap/internal/llm"
)

// Transcript records a run's assistant turns and tool results and saves them
// to a chat's history when the run completes. A failed or abandoned run
// saves nothing.
type Transcript struct {
	mem    Memory
	chatID string
	log    *slog.Logger

	mu     sync.Mutex
	turns  []*turn
	result *agent.Event
}

type turn struct {
	number  int
	text    string
	calls   []llm.ToolCall
	results []llm.Message
}

// NewTranscript returns an observer for one run in chatID.
func NewTranscript(mem Memory, chatID string, log *slog.Logger) *Transcript {
	if log == nil {
		log = slog.Default()
	}
	return &Transcript{mem: mem, chatID: chatID, log: log.With("observer", "transcript")}
}

func (t *Transcript) Name() string { return "transcript" }

func (t *Transcript) Receive(_ context.Context, ev agent.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Kind {
	case agent.KindText:
		t.turnFor(ev.Turn).text += ev.Text
	case agent.KindTextDelta:
		t.turnFor(ev.Turn).text += ev.Text
	case agent.KindToolUse:
		cur := t.turnFor(ev.Turn)
		cur.calls = append(cur.calls, llm.ToolCall{ID: ev.ToolID, Name: ev.ToolName, Arguments: ev.ToolInput})
	case agent.KindToolResult:
		cur := t.turnFor(ev.Turn)
		cur.results = append(cur.results, llm.Message{Role: "tool", Content: ev.Text, ToolCallID: ev.ToolID})
	case agent.KindResult:
		r := ev
		t.result = &r
	}
	return nil
}

func (t *Transcript) turnFor(n int) *turn {
	if len(t.turns) > 0 && t.turns[len(t.turns)-1].number == n {
		return t.turns[len(t.turns)-1]
	}
	cur := &turn{number: n}
	t.turns = append(t.turns, cur)
	return cur
}

func (t *Transcript) OnComplete(ctx context.Context) {
	msgs := t.Messages()
	if len(msgs) == 0 {
		return
	}
	if err := t.mem.SaveMessages(ctx, t.chatID, msgs); err != nil {
		t.log.Warn("failed to save transcript", "chat", t.chatID, "error", err)
	}
}

func (t *Transcript) OnError(_ context.Context, err error) {
	t.log.Debug("run failed, transcript discarded", "chat", t.chatID, "error", err)
}

// Messages returns the history entries the run would be saved as.
func (t *Transcript) Messages() []llm.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	var msgs []llm.Message
	for _, cur := range t.turns {
		if cur.text == "" && len(cur.calls) == 0 {
			continue
		}
		msgs = append(msgs, llm.Message{Role: "assistant", Content: cur.text, ToolCalls: cur.calls})
		msgs = append(msgs, cur.results...)
	}

	if t.result != nil && t.result.Text != "" {
		last := len(msgs) - 1
		if last < 0 || msgs[last].Role != "assistant" || len(msgs[last].ToolCalls) > 0 || msgs[last].Content != t.result.Text {
			msgs = append(msgs, llm.Message{Role: "assistant", Content: t.result.Text})
		}
	}
	return msgs
}
