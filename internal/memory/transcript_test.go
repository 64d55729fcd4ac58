package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamtap/internal/agent"
	"streamtap/internal/intercept"
)

func toolRun() []agent.Event {
	return []agent.Event{
		{Kind: agent.KindText, Turn: 1, Text: "checking"},
		{Kind: agent.KindToolUse, Turn: 1, ToolID: "t1", ToolName: "filesystem", ToolInput: json.RawMessage(`{"action":"list"}`)},
		{Kind: agent.KindToolResult, Turn: 1, ToolID: "t1", Text: "a.txt"},
		{Kind: agent.KindText, Turn: 2, Text: "one file"},
		{Kind: agent.KindResult, Turn: 2, Text: "one file", StopReason: agent.StopEndTurn},
	}
}

func runThrough(t *testing.T, src intercept.Source[agent.Event], obs intercept.Observer[agent.Event]) {
	t.Helper()
	s := intercept.Intercept[agent.Event](context.Background(), src, obs)
	for range s.All() {
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestTranscriptSavesCompletedRun(t *testing.T) {
	mem := newTestMemory(t)
	tr := NewTranscript(mem, "c", nil)

	runThrough(t, intercept.FromSlice(toolRun()), tr)

	history, err := mem.GetHistory(context.Background(), "c", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, "assistant", history[0].Role)
	assert.Equal(t, "checking", history[0].Content)
	require.Len(t, history[0].ToolCalls, 1)
	assert.Equal(t, "tool", history[1].Role)
	assert.Equal(t, "a.txt", history[1].Content)
	assert.Equal(t, "one file", history[2].Content)
}

func TestTranscriptDiscardsFailedRun(t *testing.T) {
	mem := newTestMemory(t)
	tr := NewTranscript(mem, "c", nil)

	runThrough(t, intercept.Failing(toolRun()[:3], errors.New("provider down")), tr)

	history, err := mem.GetHistory(context.Background(), "c", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestTranscriptKeepsBudgetMessage(t *testing.T) {
	tr := NewTranscript(nil, "c", nil)
	ctx := context.Background()
	for _, ev := range []agent.Event{
		{Kind: agent.KindToolUse, Turn: 1, ToolID: "t1", ToolName: "x"},
		{Kind: agent.KindToolResult, Turn: 1, ToolID: "t1", Text: "r"},
		{Kind: agent.KindResult, Turn: 2, Text: "I've reached the maximum", StopReason: agent.StopMaxToolCalls},
	} {
		require.NoError(t, tr.Receive(ctx, ev))
	}

	msgs := tr.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "I've reached the maximum", msgs[2].Content)
}

func TestTranscriptJoinsDeltas(t *testing.T) {
	tr := NewTranscript(nil, "c", nil)
	ctx := context.Background()
	for _, ev := range []agent.Event{
		{Kind: agent.KindTextDelta, Turn: 1, Text: "Hel"},
		{Kind: agent.KindTextDelta, Turn: 1, Text: "lo"},
		{Kind: agent.KindResult, Turn: 1, Text: "Hello"},
	} {
		require.NoError(t, tr.Receive(ctx, ev))
	}

	msgs := tr.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello", msgs[0].Content)
}
