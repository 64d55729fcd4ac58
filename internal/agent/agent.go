package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"streamtap/internal/config"
	"streamtap/internal/llm"
	"streamtap/internal/tool"
)

// Memory is the conversation storage the agent reads history from.
type Memory interface {
	SaveMessage(ctx context.Context, chatID string, msg llm.Message) error
	GetHistory(ctx context.Context, chatID string, limit int) ([]llm.Message, error)
	SaveSummary(ctx context.Context, chatID string, summary string) error
	GetSummary(ctx context.Context, chatID string) (string, error)
}

// Agent produces event streams from an LLM provider: a think→act→observe
// tool loop (Run) or a single streamed completion (Stream).
type Agent struct {
	cfg        config.AgentConfig
	provider   llm.Provider
	tools      *tool.Registry
	memory     Memory
	log        *slog.Logger
	ctxManager *contextManager
}

// New creates a new Agent. tools and mem may be nil.
func New(
	cfg config.AgentConfig,
	provider llm.Provider,
	tools *tool.Registry,
	mem Memory,
	log *slog.Logger,
) *Agent {
	if tools == nil {
		tools = tool.NewRegistry()
	}
	if mem == nil {
		mem = noMemory{}
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	return &Agent{
		cfg:        cfg,
		provider:   provider,
		tools:      tools,
		memory:     mem,
		log:        log.With("component", "agent"),
		ctxManager: newContextManager(provider, cfg.SummarizeAt),
	}
}

// Provider returns the LLM provider.
func (a *Agent) Provider() llm.Provider {
	return a.provider
}

// TestConnection sends a simple message to verify the LLM provider works.
func (a *Agent) TestConnection(ctx context.Context) error {
	req := &llm.ChatRequest{
		Messages:  []llm.Message{{Role: "user", Content: "Say 'OK' if you can hear me."}},
		MaxTokens: 32,
	}
	_, err := a.Provider().Chat(ctx, req)
	return err
}

func (a *Agent) newRun() *run {
	p := a.Provider()
	return &run{
		id:    uuid.NewString(),
		model: p.DefaultModel(),
		start: time.Now(),
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

type noMemory struct{}

func (noMemory) SaveMessage(context.Context, string, llm.Message) error { return nil }
func (noMemory) GetHistory(context.Context, string, int) ([]llm.Message, error) {
	return nil, nil
}
func (noMemory) SaveSummary(context.Context, string, string) error { return nil }
func (noMemory) GetSummary(context.Context, string) (string, error) { return "", nil }
