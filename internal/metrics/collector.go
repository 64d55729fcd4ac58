// Package metrics summarizes agent runs as they stream past.
package metrics

import (
	"context"
	"strings"
	"sync"
	"time"

	"streamtap/internal/agent"
	"streamtap/internal/intercept"
)

// Price is USD per 1K tokens.
type Price struct {
	Input  float64
	Output float64
}

// Pricing is matched by substring of the model name, first match wins.
var Pricing = []struct {
	Match string
	Price Price
}{
	{"gpt-4o-mini", Price{Input: 0.00015, Output: 0.0006}},
	{"haiku", Price{Input: 0.0008, Output: 0.004}},
	{"opus", Price{Input: 0.015, Output: 0.075}},
	{"sonnet", Price{Input: 0.003, Output: 0.015}},
}

// DefaultPrice applies to models not listed in Pricing.
var DefaultPrice = Price{Input: 0.003, Output: 0.015}

// PriceFor returns the per-1K-token price for model.
func PriceFor(model string) Price {
	m := strings.ToLower(model)
	for _, p := range Pricing {
		if strings.Contains(m, p.Match) {
			return p.Price
		}
	}
	return DefaultPrice
}

// Cost computes the USD cost of a token count at model's price.
func Cost(model string, inputTokens, outputTokens int) float64 {
	p := PriceFor(model)
	return float64(inputTokens)/1000*p.Input + float64(outputTokens)/1000*p.Output
}

// Snapshot is a point-in-time copy of a Collector's counters.
type Snapshot struct {
	Messages     int
	ByKind       map[agent.Kind]int
	ToolCalls    int
	ToolErrors   int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Model        string
	Duration     time.Duration
	State        intercept.State
	Err          error
}

// Collector counts events, tokens and cost for one run.
type Collector struct {
	mu      sync.Mutex
	started time.Time
	ended   time.Time
	snap    Snapshot
}

// NewCollector starts the clock at construction.
func NewCollector() *Collector {
	return &Collector{
		started: time.Now(),
		snap:    Snapshot{ByKind: map[agent.Kind]int{}},
	}
}

func (c *Collector) Name() string { return "metrics" }

func (c *Collector) Receive(_ context.Context, ev agent.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap.State = intercept.StateRunning
	c.snap.Messages++
	c.snap.ByKind[ev.Kind]++
	if ev.Model != "" {
		c.snap.Model = ev.Model
	}

	switch ev.Kind {
	case agent.KindToolUse:
		c.snap.ToolCalls++
	case agent.KindToolResult:
		if ev.IsError {
			c.snap.ToolErrors++
		}
	case agent.KindResult:
		if ev.Usage != nil {
			c.snap.InputTokens += ev.Usage.InputTokens
			c.snap.OutputTokens += ev.Usage.OutputTokens
		}
		if ev.CostUSD > 0 {
			c.snap.CostUSD += ev.CostUSD
		} else if ev.Usage != nil {
			c.snap.CostUSD += Cost(c.snap.Model, ev.Usage.InputTokens, ev.Usage.OutputTokens)
		}
	}
	return nil
}

func (c *Collector) OnComplete(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.State = intercept.StateCompleted
	c.ended = time.Now()
}

func (c *Collector) OnError(_ context.Context, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.State = intercept.StateErrored
	c.snap.Err = err
	c.ended = time.Now()
}

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.snap
	s.ByKind = make(map[agent.Kind]int, len(c.snap.ByKind))
	for k, v := range c.snap.ByKind {
		s.ByKind[k] = v
	}
	end := c.ended
	if end.IsZero() {
		end = time.Now()
	}
	s.Duration = end.Sub(c.started)
	return s
}
