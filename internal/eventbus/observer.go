package eventbus

import (
	"context"
	"sync"

	"streamtap/internal/agent"
)

// Observer republishes a run's events on the bus, one topic per event kind,
// and announces how the run ended.
type Observer struct {
	bus *Bus

	mu     sync.Mutex
	runID  string
	events int
}

// NewObserver returns an observer publishing to bus.
func NewObserver(bus *Bus) *Observer {
	return &Observer{bus: bus}
}

func (o *Observer) Name() string { return "eventbus" }

// topicFor maps an event kind to its topic.
func topicFor(k agent.Kind) Topic {
	return Topic(k)
}

func (o *Observer) Receive(_ context.Context, ev agent.Event) error {
	o.mu.Lock()
	o.events++
	if ev.RunID != "" {
		o.runID = ev.RunID
	}
	o.mu.Unlock()

	o.bus.Publish(topicFor(ev.Kind), ev)
	return nil
}

func (o *Observer) OnComplete(context.Context) {
	o.bus.Publish(TopicStreamComplete, o.end(nil))
}

func (o *Observer) OnError(_ context.Context, err error) {
	o.bus.Publish(TopicStreamError, o.end(err))
}

func (o *Observer) end(err error) StreamEnd {
	o.mu.Lock()
	defer o.mu.Unlock()
	return StreamEnd{RunID: o.runID, Events: o.events, Err: err}
}
