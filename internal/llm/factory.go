package llm

import (
	"fmt"
	"log/slog"

	"streamtap/internal/config"
)

// NewProvider creates an LLM provider from config.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai", "openrouter", "local":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}), nil
	case "anthropic":
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}

// NewFromConfig builds the primary provider and, when fallback is set, wraps
// both in a FallbackProvider.
func NewFromConfig(primary config.LLMConfig, fallback *config.LLMConfig, log *slog.Logger) (Provider, error) {
	p, err := NewProvider(primary)
	if err != nil {
		return nil, err
	}
	if fallback == nil || fallback.Provider == "" {
		return p, nil
	}
	fb, err := NewProvider(*fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	return NewFallbackProvider(log, p, fb), nil
}
