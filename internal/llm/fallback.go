package llm

import (
	"context"
	"errors"
	"log/slog"
)

// FallbackProvider tries providers in order, falling back on retryable errors.
// Only the initial request falls back; a stream that fails midway reports its
// error in-band and is not restarted.
type FallbackProvider struct {
	providers []Provider
	log       *slog.Logger
}

// NewFallbackProvider creates a provider chain. The first provider is primary.
func NewFallbackProvider(log *slog.Logger, providers ...Provider) *FallbackProvider {
	if log == nil {
		log = slog.Default()
	}
	return &FallbackProvider{providers: providers, log: log.With("component", "fallback")}
}

func (f *FallbackProvider) Name() string {
	if len(f.providers) > 0 {
		return f.providers[0].Name() + "+fallback"
	}
	return "fallback"
}

func (f *FallbackProvider) DefaultModel() string {
	if len(f.providers) > 0 {
		return f.providers[0].DefaultModel()
	}
	return ""
}

func (f *FallbackProvider) Chat(ctx context.Context, req *ChatRequest) (*LLMResponse, error) {
	var lastErr error = errNoProviders
	for i, p := range f.providers {
		resp, err := p.Chat(ctx, f.requestFor(i, req))
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		f.log.Warn("provider failed, trying next", "provider", p.Name(), "error", err)
	}
	return nil, lastErr
}

func (f *FallbackProvider) StreamChat(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	var lastErr error = errNoProviders
	for i, p := range f.providers {
		ch, err := p.StreamChat(ctx, f.requestFor(i, req))
		if err == nil {
			return ch, nil
		}
		lastErr = err
		if !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		f.log.Warn("provider stream failed, trying next", "provider", p.Name(), "error", err)
	}
	return nil, lastErr
}

// requestFor clears the model override for secondary providers so each one
// uses its own default model.
func (f *FallbackProvider) requestFor(i int, req *ChatRequest) *ChatRequest {
	if i == 0 || req.Model == "" {
		return req
	}
	cp := *req
	cp.Model = ""
	return &cp
}

var errNoProviders = &LLMError{Type: ErrorInvalidInput, Message: "no providers configured"}

// isRetryable returns true for errors that warrant trying a different provider.
func isRetryable(err error) bool {
	var llmErr *LLMError
	if !errors.As(err, &llmErr) {
		return true // unknown errors are retryable
	}
	return llmErr.Retryable()
}
