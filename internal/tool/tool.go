package tool

import (
	"context"
	"encoding/json"
)

// Tool is something the agent can call mid-run.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage // JSON Schema
	// Execute returns a non-nil Result for failures the model should see,
	// and an error only when the run itself must stop.
	Execute(ctx context.Context, args json.RawMessage) (*Result, error)
}

// Result is the output of a tool execution.
type Result struct {
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
	IsError bool   `json:"is_error"`
}

// Text is what the model sees for this result.
func (r *Result) Text() string {
	if r.IsError && r.Error != "" {
		return r.Error
	}
	return r.Output
}
