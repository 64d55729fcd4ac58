package channel

import "context"

// OutboundMessage is a message to send through a channel.
type OutboundMessage struct {
	ChatID string
	Text   string
}

// Channel is the interface for messaging integrations.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg OutboundMessage) error
}
