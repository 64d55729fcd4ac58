package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Manager holds the configured channels and can send to all of them at once.
type Manager struct {
	mu       sync.RWMutex
	channels map[string]Channel
	log      *slog.Logger
}

// NewManager creates a new channel manager.
func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		channels: make(map[string]Channel),
		log:      log.With("component", "channel"),
	}
}

// Register adds a channel to the manager, replacing one with the same name.
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

// Get returns a channel by name.
func (m *Manager) Get(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// Names returns the registered channel names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered channels.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channels)
}

func (m *Manager) Name() string { return "all" }

// Send delivers msg to every channel. One failing channel does not stop the
// others; the failures are joined.
func (m *Manager) Send(ctx context.Context, msg OutboundMessage) error {
	var errs []error
	for _, name := range m.Names() {
		ch, ok := m.Get(name)
		if !ok {
			continue
		}
		if err := ch.Send(ctx, msg); err != nil {
			m.log.Warn("send failed", "channel", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
