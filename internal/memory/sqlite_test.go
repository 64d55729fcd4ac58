package memory

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamtap/internal/llm"
)

func newTestMemory(t *testing.T) *SQLiteMemory {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	mem, err := NewSQLiteMemory(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { mem.Close() })
	return mem
}

func TestSaveAndGetMessages(t *testing.T) {
	mem := newTestMemory(t)
	ctx := context.Background()

	msgs := []llm.Message{
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi there!"},
		{Role: "user", Content: "How are you?"},
	}
	for _, m := range msgs {
		require.NoError(t, mem.SaveMessage(ctx, "chat1", m))
	}

	history, err := mem.GetHistory(ctx, "chat1", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "Hello", history[0].Content)
	assert.Equal(t, "How are you?", history[2].Content)
}

func TestGetHistoryLimit(t *testing.T) {
	mem := newTestMemory(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, mem.SaveMessage(ctx, "chat1", llm.Message{Role: "user", Content: "msg"}))
	}

	history, err := mem.GetHistory(ctx, "chat1", 3)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestSaveMessagesKeepsToolCalls(t *testing.T) {
	mem := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, mem.SaveMessages(ctx, "c", []llm.Message{
		{Role: "user", Content: "list files"},
		{Role: "assistant", ToolCalls: []llm.ToolCall{{ID: "t1", Name: "filesystem", Arguments: json.RawMessage(`{"action":"list"}`)}}},
		{Role: "tool", Content: "a.txt", ToolCallID: "t1"},
		{Role: "assistant", Content: "one file"},
	}))

	history, err := mem.GetHistory(ctx, "c", 10)
	require.NoError(t, err)
	require.Len(t, history, 4)
	require.Len(t, history[1].ToolCalls, 1)
	assert.Equal(t, "filesystem", history[1].ToolCalls[0].Name)
	assert.Equal(t, "t1", history[2].ToolCallID)
}

func TestGetHistoryDropsOrphanedToolResults(t *testing.T) {
	mem := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, mem.SaveMessages(ctx, "c", []llm.Message{
		{Role: "assistant", ToolCalls: []llm.ToolCall{{ID: "t1", Name: "x"}}},
		{Role: "tool", Content: "r", ToolCallID: "t1"},
		{Role: "assistant", Content: "done"},
	}))

	history, err := mem.GetHistory(ctx, "c", 2)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "done", history[0].Content)
}

func TestSaveAndGetSummary(t *testing.T) {
	mem := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, mem.SaveSummary(ctx, "chat1", "User asked about weather"))
	summary, err := mem.GetSummary(ctx, "chat1")
	require.NoError(t, err)
	assert.Equal(t, "User asked about weather", summary)
}

func TestGetSummaryEmpty(t *testing.T) {
	mem := newTestMemory(t)

	summary, err := mem.GetSummary(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestIsolatedChats(t *testing.T) {
	mem := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, mem.SaveMessage(ctx, "chat1", llm.Message{Role: "user", Content: "chat1 msg"}))
	require.NoError(t, mem.SaveMessage(ctx, "chat2", llm.Message{Role: "user", Content: "chat2 msg"}))

	h1, _ := mem.GetHistory(ctx, "chat1", 10)
	h2, _ := mem.GetHistory(ctx, "chat2", 10)

	require.Len(t, h1, 1)
	assert.Equal(t, "chat1 msg", h1[0].Content)
	require.Len(t, h2, 1)
	assert.Equal(t, "chat2 msg", h2[0].Content)
}
