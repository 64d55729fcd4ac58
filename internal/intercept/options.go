package intercept

import "log/slog"

// OverflowPolicy controls what a bounded observer queue does when it is full.
type OverflowPolicy uint8

const (
	// DropNewest discards the event being pushed.
	DropNewest OverflowPolicy = iota

	// DropOldest discards the oldest queued event to make room.
	DropOldest
)

func (p OverflowPolicy) String() string {
	switch p {
	case DropNewest:
		return "drop_newest"
	case DropOldest:
		return "drop_oldest"
	default:
		return "unknown"
	}
}

// ParseOverflowPolicy maps a config value to a policy. Empty means DropNewest.
func ParseOverflowPolicy(s string) (OverflowPolicy, bool) {
	switch s {
	case "", "drop_newest":
		return DropNewest, true
	case "drop_oldest":
		return DropOldest, true
	default:
		return DropNewest, false
	}
}

// Option configures an Interceptor.
type Option func(*config)

type config struct {
	queueLimit int
	policy     OverflowPolicy
	logger     *slog.Logger
}

// WithQueueLimit bounds every observer queue to n pending events. n <= 0
// keeps queues unbounded.
func WithQueueLimit(n int, policy OverflowPolicy) Option {
	return func(c *config) {
		c.queueLimit = n
		c.policy = policy
	}
}

// WithLogger sets the logger used for session and observer lifecycle logs.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
