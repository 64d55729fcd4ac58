package llm

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

// classifyError maps an SDK or transport error onto an LLMError. Status codes
// from the SDK error types win; otherwise the message is inspected.
func classifyError(err error) *LLMError {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr
	}

	llmErr = &LLMError{Err: err, Message: err.Error()}

	var anthErr *anthropic.Error
	var oaiErr *openai.Error
	switch {
	case errors.As(err, &anthErr):
		llmErr.StatusCode = anthErr.StatusCode
	case errors.As(err, &oaiErr):
		llmErr.StatusCode = oaiErr.StatusCode
	}

	if llmErr.StatusCode != 0 {
		llmErr.Type = typeForStatus(llmErr.StatusCode)
		return llmErr
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		llmErr.Type = ErrorTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		llmErr.Type = ErrorTimeout
	case errors.As(err, &netErr):
		llmErr.Type = ErrorNetwork
	default:
		llmErr.Type = typeForMessage(strings.ToLower(llmErr.Message))
	}
	return llmErr
}

func typeForStatus(code int) ErrorType {
	switch {
	case code == 401 || code == 403:
		return ErrorAuth
	case code == 429:
		return ErrorRateLimit
	case code == 408:
		return ErrorTimeout
	case code >= 500:
		return ErrorServerError
	case code >= 400:
		return ErrorInvalidInput
	default:
		return ErrorUnknown
	}
}

func typeForMessage(lower string) ErrorType {
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "403") ||
		strings.Contains(lower, "unauthorized") || strings.Contains(lower, "authentication"):
		return ErrorAuth
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit") || strings.Contains(lower, "rate_limit"):
		return ErrorRateLimit
	case strings.Contains(lower, "400") || strings.Contains(lower, "invalid"):
		return ErrorInvalidInput
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") ||
		strings.Contains(lower, "503") || strings.Contains(lower, "overloaded"):
		return ErrorServerError
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return ErrorTimeout
	case strings.Contains(lower, "connection") || strings.Contains(lower, "dns") || strings.Contains(lower, "refused"):
		return ErrorNetwork
	default:
		return ErrorUnknown
	}
}
