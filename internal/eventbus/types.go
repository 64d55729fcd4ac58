package eventbus

import "time"

// Topic represents an event topic.
type Topic string

const (
	TopicText           Topic = "text"
	TopicTextDelta      Topic = "text_delta"
	TopicToolUse        Topic = "tool_use"
	TopicToolResult     Topic = "tool_result"
	TopicResult         Topic = "result"
	TopicStreamComplete Topic = "stream_complete"
	TopicStreamError    Topic = "stream_error"

	// TopicAll subscribes to every topic.
	TopicAll Topic = "*"
)

// Event is a message passed through the event bus.
type Event struct {
	Topic     Topic
	Payload   any
	Timestamp time.Time
}

// Handler processes an event.
type Handler func(Event)

// StreamEnd is the payload of TopicStreamComplete and TopicStreamError.
type StreamEnd struct {
	RunID  string
	Events int
	Err    error
}
