package agent

import (
	"context"
	"fmt"

	"streamtap/internal/intercept"
	"streamtap/internal/llm"
)

// Run returns a source that runs the agent loop for a single user message:
// think → act → observe, repeating until the LLM produces a final text
// response or the tool-call budget runs out. Nothing happens until the source
// is ranged over. Provider errors end the source unchanged.
func (a *Agent) Run(ctx context.Context, chatID, prompt string) intercept.Source[Event] {
	return func(yield func(Event, error) bool) {
		r := a.newRun()
		log := a.log.With("run", r.id, "chat", chatID)
		log.Info("run started", "prompt", truncate(prompt, 100))

		messages := a.buildMessages(ctx, chatID, prompt)
		if err := a.memory.SaveMessage(ctx, chatID, llm.Message{Role: "user", Content: prompt}); err != nil {
			log.Warn("failed to save user message", "error", err)
		}

		provider := a.Provider()
		toolCallCount := 0
		for {
			if err := ctx.Err(); err != nil {
				yield(Event{}, err)
				return
			}

			messages = a.compact(ctx, chatID, messages)

			// Think: send to LLM
			r.turn++
			req := &llm.ChatRequest{
				Messages:     messages,
				Tools:        a.tools.Definitions(),
				MaxTokens:    a.cfg.MaxTokens,
				Temperature:  a.cfg.Temperature,
				SystemPrompt: a.cfg.SystemPrompt,
			}
			resp, err := provider.Chat(ctx, req)
			if err != nil {
				log.Warn("provider failed", "turn", r.turn, "error", err)
				yield(Event{}, err)
				return
			}
			r.usage.InputTokens += resp.Usage.InputTokens
			r.usage.OutputTokens += resp.Usage.OutputTokens

			// Guard against infinite tool call loops
			toolCallCount += len(resp.ToolCalls)
			if len(resp.ToolCalls) > 0 && toolCallCount > a.cfg.MaxToolCalls {
				msg := "I've reached the maximum number of tool calls for this request. Here's what I have so far: " + resp.Content
				log.Warn("tool call budget exhausted", "calls", toolCallCount)
				yield(r.result(msg, StopMaxToolCalls), nil)
				return
			}

			if resp.Content != "" {
				ev := r.event(KindText)
				ev.Text = resp.Content
				if !yield(ev, nil) {
					return
				}
			}

			if len(resp.ToolCalls) == 0 {
				log.Info("run finished", "turns", r.turn, "input_tokens", r.usage.InputTokens, "output_tokens", r.usage.OutputTokens)
				yield(r.result(resp.Content, StopEndTurn), nil)
				return
			}

			messages = append(messages, llm.Message{
				Role:      "assistant",
				Content:   resp.Content,
				ToolCalls: resp.ToolCalls,
			})

			// Act: execute each tool call
			for _, tc := range resp.ToolCalls {
				use := r.event(KindToolUse)
				use.ToolID, use.ToolName, use.ToolInput = tc.ID, tc.Name, tc.Arguments
				if !yield(use, nil) {
					return
				}

				output, isErr := a.execute(ctx, tc)

				res := r.event(KindToolResult)
				res.ToolID, res.ToolName, res.Text, res.IsError = tc.ID, tc.Name, output, isErr
				if !yield(res, nil) {
					return
				}

				// Observe: add tool result to messages
				messages = append(messages, llm.Message{
					Role:       "tool",
					Content:    output,
					ToolCallID: tc.ID,
				})
			}
		}
	}
}

// buildMessages loads the chat history, prefixed by any stored summary.
func (a *Agent) buildMessages(ctx context.Context, chatID, prompt string) []llm.Message {
	history, err := a.memory.GetHistory(ctx, chatID, a.cfg.HistoryLimit)
	if err != nil {
		a.log.Warn("failed to load history", "chat", chatID, "error", err)
		history = nil
	}

	summary, _ := a.memory.GetSummary(ctx, chatID)

	messages := make([]llm.Message, 0, len(history)+3)
	if summary != "" {
		messages = append(messages,
			llm.Message{Role: "user", Content: "[Previous conversation summary]: " + summary},
			llm.Message{Role: "assistant", Content: "I understand the previous context. How can I help?"},
		)
	}
	messages = append(messages, history...)
	return append(messages, llm.Message{Role: "user", Content: prompt})
}

// compact summarizes older messages once the history grows past the
// configured threshold. Failures leave the messages untouched.
func (a *Agent) compact(ctx context.Context, chatID string, messages []llm.Message) []llm.Message {
	cm := a.ctxManager

	if !cm.shouldSummarize(messages) {
		return messages
	}
	summary, recent, err := cm.summarize(ctx, messages)
	if err != nil {
		a.log.Warn("summarization failed", "chat", chatID, "error", err)
		return messages
	}
	if summary == "" {
		return messages
	}
	if err := a.memory.SaveSummary(ctx, chatID, summary); err != nil {
		a.log.Warn("failed to save summary", "chat", chatID, "error", err)
	}
	return append([]llm.Message{
		{Role: "user", Content: "[Conversation summary]: " + summary},
		{Role: "assistant", Content: "I understand the context. Continuing..."},
	}, recent...)
}

// execute runs one tool call. Tool failures are reported to the model, not
// returned.
func (a *Agent) execute(ctx context.Context, tc llm.ToolCall) (string, bool) {
	t, err := a.tools.Get(tc.Name)
	if err != nil {
		return fmt.Sprintf("Error: tool '%s' not found", tc.Name), true
	}
	res, err := t.Execute(ctx, tc.Arguments)
	switch {
	case err != nil:
		return "Error executing tool: " + err.Error(), true
	case res == nil:
		return "", false
	case res.IsError:
		return "Error: " + res.Text(), true
	default:
		return res.Text(), false
	}
}
