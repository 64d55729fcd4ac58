package llm

import "context"

// Provider is the interface all LLM backends must implement.
type Provider interface {
	// Chat sends a chat completion request and returns the full response.
	Chat(ctx context.Context, req *ChatRequest) (*LLMResponse, error)

	// StreamChat sends a streaming chat completion request. The channel is
	// closed when the response ends; a failure arrives in-band as the last
	// event's Error. Cancelling ctx stops the producer.
	StreamChat(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error)

	// Name returns the provider name (e.g. "openai", "anthropic").
	Name() string

	// DefaultModel returns the default model for this provider.
	DefaultModel() string
}

// LLMError wraps an error with a classification for fallback logic.
type LLMError struct {
	Type       ErrorType
	StatusCode int
	Message    string
	Err        error
}

func (e *LLMError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another provider might succeed where this one
// failed.
func (e *LLMError) Retryable() bool {
	switch e.Type {
	case ErrorAuth, ErrorInvalidInput:
		return false
	default:
		return true
	}
}
