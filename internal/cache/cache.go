// Package cache persists completed agent runs so an identical request can be
// replayed without calling the provider again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync/atomic"
	"time"

	"streamtap/internal/agent"
)

// DefaultTTL is how long an entry stays valid when no TTL is configured.
const DefaultTTL = 7 * 24 * time.Hour

// ErrMiss is returned by Store.Get when the key is absent, expired or
// unreadable.
var ErrMiss = errors.New("cache: miss")

// Entry is one cached run.
type Entry struct {
	Key       string        `json:"key"`
	Model     string        `json:"model,omitempty"`
	Events    []agent.Event `json:"events"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at now.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Stats counts lookups since the store was opened. Hits and Misses are
// held in memory and start at zero in every process.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int64  `json:"entries"`
}

// HitRate is hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Store is a keyed store of cached runs.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, e *Entry) error
	Purge(ctx context.Context) (int64, error)
	Stats(ctx context.Context) Stats
	Close() error
}

// Key derives a stable cache key from the request parts. Parts are length
// prefixed so ("ab","c") and ("a","bc") differ.
func Key(parts ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		l := uint64(len(p))
		for i := range n {
			n[i] = byte(l >> (8 * i))
		}
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

type counters struct {
	hits   atomic.Uint64
	misses atomic.Uint64
}

func (c *counters) record(err error) {
	if err == nil {
		c.hits.Add(1)
	} else if errors.Is(err, ErrMiss) {
		c.misses.Add(1)
	}
}
