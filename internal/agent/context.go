package agent

import (
	"context"
	"strings"

	"streamtap/internal/llm"
)

// contextManager handles conversation context, including summarization
// when the history approaches its limit.
type contextManager struct {
	provider    llm.Provider
	summarizeAt int
}

func newContextManager(provider llm.Provider, summarizeAt int) *contextManager {
	return &contextManager{
		provider:    provider,
		summarizeAt: summarizeAt,
	}
}

// estimateTokens provides a rough token estimate (4 chars ≈ 1 token).
func estimateTokens(messages []llm.Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content) / 4
		for _, tc := range m.ToolCalls {
			total += len(tc.Arguments) / 4
		}
	}
	return total
}

// shouldSummarize returns true if the message history approaches the context limit.
func (cm *contextManager) shouldSummarize(messages []llm.Message) bool {
	return cm.summarizeAt > 0 && estimateTokens(messages) > cm.summarizeAt
}

// summarize compresses the conversation into a summary + recent messages.
// The recent tail never starts with a tool result, so tool_use/tool_result
// pairs stay together.
func (cm *contextManager) summarize(ctx context.Context, messages []llm.Message) (string, []llm.Message, error) {
	if len(messages) <= 4 {
		return "", messages, nil
	}

	cutoff := len(messages) - 4
	for cutoff > 0 && messages[cutoff].Role == "tool" {
		cutoff--
	}
	if cutoff == 0 {
		return "", messages, nil
	}
	toSummarize := messages[:cutoff]
	recent := messages[cutoff:]

	var text strings.Builder
	for _, m := range toSummarize {
		text.WriteString(m.Role + ": " + m.Content + "\n")
	}

	summaryReq := &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "user", Content: "Summarize this conversation concisely, preserving key facts, decisions, and context:\n\n" + text.String()},
		},
		MaxTokens:    1024,
		Temperature:  0.3,
		SystemPrompt: "You are a conversation summarizer. Create a brief, factual summary.",
	}

	resp, err := cm.provider.Chat(ctx, summaryReq)
	if err != nil {
		return "", recent, err
	}

	return resp.Content, recent, nil
}
