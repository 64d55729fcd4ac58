package agent

import (
	"encoding/json"
	"time"

	"streamtap/internal/llm"
)

// Kind identifies what an Event carries.
type Kind string

const (
	KindText       Kind = "text"        // a complete assistant reply for one turn
	KindTextDelta  Kind = "text_delta"  // a streamed fragment
	KindToolUse    Kind = "tool_use"    // the model asked for a tool
	KindToolResult Kind = "tool_result" // the tool's output
	KindResult     Kind = "result"      // run summary, always last
)

// Stop reasons reported on result events.
const (
	StopEndTurn      = "end_turn"
	StopMaxToolCalls = "max_tool_calls"
)

// Event is one message produced by an agent run.
type Event struct {
	Kind  Kind      `json:"kind"`
	RunID string    `json:"run_id"`
	Turn  int       `json:"turn"`
	Time  time.Time `json:"time"`
	Model string    `json:"model,omitempty"`

	Text string `json:"text,omitempty"`

	ToolID    string          `json:"tool_id,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`

	// Set on result events only.
	Usage      *llm.Usage    `json:"usage,omitempty"`
	CostUSD    float64       `json:"cost_usd,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	StopReason string        `json:"stop_reason,omitempty"`
}

// run carries the per-invocation bookkeeping shared by Run and Stream.
type run struct {
	id    string
	model string
	turn  int
	start time.Time
	usage llm.Usage
}

func (r *run) event(kind Kind) Event {
	return Event{Kind: kind, RunID: r.id, Turn: r.turn, Model: r.model, Time: time.Now()}
}

func (r *run) result(text, stopReason string) Event {
	ev := r.event(KindResult)
	ev.Text = text
	u := r.usage
	ev.Usage = &u
	ev.Duration = time.Since(r.start)
	ev.StopReason = stopReason
	return ev
}
