package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider replays canned stream events or fails with err.
type fakeProvider struct {
	name   string
	err    error
	events []StreamEvent
	reply  *LLMResponse

	mu    sync.Mutex
	calls []*ChatRequest
}

func (f *fakeProvider) Name() string         { return f.name }
func (f *fakeProvider) DefaultModel() string { return f.name + "-model" }

func (f *fakeProvider) record(req *ChatRequest) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
}

func (f *fakeProvider) Chat(_ context.Context, req *ChatRequest) (*LLMResponse, error) {
	f.record(req)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeProvider) StreamChat(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	f.record(req)
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan StreamEvent)
	go func() {
		defer close(ch)
		for _, ev := range f.events {
			if !send(ctx, ch, ev) {
				return
			}
		}
	}()
	return ch, nil
}

func TestTypeForStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{401, ErrorAuth},
		{403, ErrorAuth},
		{429, ErrorRateLimit},
		{400, ErrorInvalidInput},
		{404, ErrorInvalidInput},
		{408, ErrorTimeout},
		{500, ErrorServerError},
		{529, ErrorServerError},
		{200, ErrorUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, typeForStatus(tt.code), "status %d", tt.code)
	}
}

func TestClassifyErrorByMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorType
	}{
		{"authentication_error: invalid x-api-key", ErrorAuth},
		{"rate_limit_error", ErrorRateLimit},
		{"Overloaded", ErrorServerError},
		{"dial tcp: connection refused", ErrorNetwork},
		{"something odd", ErrorUnknown},
	}
	for _, tt := range tests {
		got := classifyError(errors.New(tt.msg))
		assert.Equal(t, tt.want, got.Type, tt.msg)
	}
}

func TestClassifyErrorContextAndPassthrough(t *testing.T) {
	got := classifyError(fmt.Errorf("request: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrorTimeout, got.Type)
	assert.ErrorIs(t, got, context.DeadlineExceeded)

	orig := &LLMError{Type: ErrorAuth, Message: "nope"}
	assert.Same(t, orig, classifyError(orig))
}

func TestLLMErrorRetryable(t *testing.T) {
	assert.False(t, (&LLMError{Type: ErrorAuth}).Retryable())
	assert.False(t, (&LLMError{Type: ErrorInvalidInput}).Retryable())
	assert.True(t, (&LLMError{Type: ErrorRateLimit}).Retryable())
	assert.True(t, isRetryable(errors.New("plain")))
	assert.Equal(t, "rate_limit", ErrorRateLimit.String())
}

func TestFallbackChat(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: &LLMError{Type: ErrorServerError, Message: "500"}}
	secondary := &fakeProvider{name: "secondary", reply: &LLMResponse{Content: "hi"}}
	fb := NewFallbackProvider(nil, primary, secondary)

	resp, err := fb.Chat(context.Background(), &ChatRequest{Model: "claude-x"})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)
	assert.Equal(t, "primary+fallback", fb.Name())
	assert.Equal(t, "primary-model", fb.DefaultModel())

	require.Len(t, secondary.calls, 1)
	assert.Empty(t, secondary.calls[0].Model, "secondary uses its own default model")
}

func TestFallbackStopsOnAuthError(t *testing.T) {
	authErr := &LLMError{Type: ErrorAuth, Message: "401"}
	primary := &fakeProvider{name: "primary", err: authErr}
	secondary := &fakeProvider{name: "secondary", reply: &LLMResponse{}}
	fb := NewFallbackProvider(nil, primary, secondary)

	_, err := fb.StreamChat(context.Background(), &ChatRequest{})
	assert.Same(t, authErr, err)
	assert.Empty(t, secondary.calls)
}

func TestFallbackWithoutProviders(t *testing.T) {
	_, err := NewFallbackProvider(nil).Chat(context.Background(), &ChatRequest{})
	assert.Error(t, err)
}

func TestEventsYieldsChunks(t *testing.T) {
	p := &fakeProvider{name: "fake", events: []StreamEvent{
		{ContentDelta: "Hel"},
		{ContentDelta: "lo"},
		{Done: true, Usage: &Usage{InputTokens: 3, OutputTokens: 2}},
	}}

	var text strings.Builder
	var last StreamEvent
	for ev, err := range Events(context.Background(), p, &ChatRequest{}) {
		require.NoError(t, err)
		text.WriteString(ev.ContentDelta)
		last = ev
	}
	assert.Equal(t, "Hello", text.String())
	assert.True(t, last.Done)
	assert.Equal(t, 2, last.Usage.OutputTokens)
}

func TestEventsSurfacesInBandError(t *testing.T) {
	boom := &LLMError{Type: ErrorServerError, Message: "overloaded"}
	p := &fakeProvider{name: "fake", events: []StreamEvent{
		{ContentDelta: "partial"},
		{Error: boom, Done: true},
	}}

	var n int
	var gotErr error
	for _, err := range Events(context.Background(), p, &ChatRequest{}) {
		if err != nil {
			gotErr = err
			break
		}
		n++
	}
	assert.Equal(t, 1, n)
	assert.Same(t, boom, gotErr)
}

func TestEventsSurfacesStartError(t *testing.T) {
	boom := &LLMError{Type: ErrorAuth, Message: "401"}
	p := &fakeProvider{name: "fake", err: boom}
	for _, err := range Events(context.Background(), p, &ChatRequest{}) {
		assert.Same(t, boom, err)
	}
}

func TestOpenAIStreamChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"},"finish_reason":null}]}`,
			`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":null}]}`,
			`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
			`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`,
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test", BaseURL: srv.URL, Model: "m"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var text strings.Builder
	var usage *Usage
	done := false
	for ev, err := range Events(ctx, p, &ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}) {
		require.NoError(t, err)
		text.WriteString(ev.ContentDelta)
		done = done || ev.Done
		if ev.Usage != nil {
			usage = ev.Usage
		}
	}
	assert.Equal(t, "Hello", text.String())
	assert.True(t, done)
	require.NotNil(t, usage)
	assert.Equal(t, 5, usage.InputTokens)
	assert.Equal(t, 2, usage.OutputTokens)
}

func TestOpenAIChatClassifiesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key"}}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})

	var llmErr *LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrorAuth, llmErr.Type)
	assert.Equal(t, http.StatusUnauthorized, llmErr.StatusCode)
}
