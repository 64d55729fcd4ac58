package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamtap/internal/agent"
	"streamtap/internal/config"
	"streamtap/internal/intercept"
	"streamtap/internal/security"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "cache.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleEvents() []agent.Event {
	return []agent.Event{
		{Kind: agent.KindText, Turn: 1, Text: "write to bob@example.com", Model: "claude-sonnet"},
		{Kind: agent.KindResult, Turn: 1, Text: "write to bob@example.com", StopReason: agent.StopEndTurn},
	}
}

func TestKey(t *testing.T) {
	k := Key("anthropic", "claude", "hello")
	assert.Len(t, k, 64)
	assert.Equal(t, k, Key("anthropic", "claude", "hello"))
	assert.NotEqual(t, k, Key("anthropic", "claude", "hello!"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
}

func TestStatsHitRate(t *testing.T) {
	assert.Zero(t, Stats{}.HitRate())
	assert.InDelta(t, 0.75, Stats{Hits: 3, Misses: 1}.HitRate(), 1e-9)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	now := time.Now()
	require.NoError(t, s.Put(ctx, &Entry{
		Key: "k1", Model: "m", Events: sampleEvents(),
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	e, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "m", e.Model)
	require.Len(t, e.Events, 2)
	assert.Equal(t, agent.KindResult, e.Events[1].Kind)

	st := s.Stats(ctx)
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.Equal(t, int64(1), st.Entries)
}

func TestSQLiteStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now()
	require.NoError(t, s.Put(ctx, &Entry{Key: "k", Events: sampleEvents(), CreatedAt: now, ExpiresAt: now.Add(time.Minute)}))

	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, int64(0), s.Stats(ctx).Entries, "expired entry is deleted on read")
}

func TestSQLiteStoreCorruptRowIsMiss(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.db.Exec(`INSERT INTO entries (key, model, events, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		"bad", "m", "{not json", time.Now().UnixNano(), time.Now().Add(time.Hour).UnixNano())
	require.NoError(t, err)

	_, err = s.Get(ctx, "bad")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestSQLiteStorePurge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(ctx, &Entry{Key: k, Events: sampleEvents(), CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	}
	require.NoError(t, s.Put(ctx, &Entry{Key: "old", Events: sampleEvents(), CreatedAt: now, ExpiresAt: now.Add(-time.Second)}))

	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func runThrough(t *testing.T, src intercept.Source[agent.Event], obs intercept.Observer[agent.Event]) {
	t.Helper()
	s := intercept.Intercept[agent.Event](context.Background(), src, obs)
	for range s.All() {
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestWriterStoresCompletedRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	w := NewWriter(s, "run-key", WithTTL(time.Hour))

	runThrough(t, intercept.FromSlice(sampleEvents()), w)
	require.True(t, w.Saved())

	e, err := s.Get(ctx, "run-key")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet", e.Model)
	assert.WithinDuration(t, e.CreatedAt.Add(time.Hour), e.ExpiresAt, time.Second)

	var replayed []agent.Event
	for ev, err := range Replay(e) {
		require.NoError(t, err)
		replayed = append(replayed, ev)
	}
	assert.Equal(t, sampleEvents()[1].Text, replayed[1].Text)
}

func TestWriterDiscardsFailedRun(t *testing.T) {
	s := newTestStore(t)
	w := NewWriter(s, "run-key")

	runThrough(t, intercept.Failing(sampleEvents()[:1], errors.New("rate limited")), w)

	assert.False(t, w.Saved())
	_, err := s.Get(context.Background(), "run-key")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestWriterSanitizes(t *testing.T) {
	s := newTestStore(t)
	san := security.NewSanitizer(config.PIIFilterConfig{Enabled: true, FilterEmails: true})
	w := NewWriter(s, "k", WithSanitizer(san))

	runThrough(t, intercept.FromSlice(sampleEvents()), w)

	e, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	for _, ev := range e.Events {
		assert.NotContains(t, ev.Text, "bob@example.com")
		assert.Contains(t, ev.Text, "[EMAIL_1]")
	}
}

func TestWriterSanitizesToolEvents(t *testing.T) {
	s := newTestStore(t)
	san := security.NewSanitizer(config.PIIFilterConfig{Enabled: true, FilterEmails: true})
	w := NewWriter(s, "k", WithSanitizer(san))

	events := []agent.Event{
		{Kind: agent.KindToolUse, ToolID: "t1", ToolName: "send_mail",
			ToolInput: json.RawMessage(`{"to":["bob@example.com"],"subject":"hi","retries":2}`)},
		{Kind: agent.KindToolResult, ToolID: "t1", Text: "delivered to bob@example.com"},
		{Kind: agent.KindToolUse, ToolID: "t2", ToolName: "raw",
			ToolInput: json.RawMessage(`to=bob@example.com`)},
	}
	runThrough(t, intercept.FromSlice(events), w)

	e, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	require.Len(t, e.Events, 3)

	assert.JSONEq(t, `{"to":["[EMAIL_1]"],"subject":"hi","retries":2}`, string(e.Events[0].ToolInput))
	assert.Equal(t, "delivered to [EMAIL_1]", e.Events[1].Text)
	assert.True(t, json.Valid(e.Events[2].ToolInput))
	assert.JSONEq(t, `"to=[EMAIL_1]"`, string(e.Events[2].ToolInput))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := Open(ctx, config.CacheConfig{Backend: "sqlite"}, dir, nil)
	require.NoError(t, err)
	require.NoError(t, st.Close())
	assert.FileExists(t, filepath.Join(dir, "cache.db"))

	_, err = Open(ctx, config.CacheConfig{Backend: "redis"}, dir, nil)
	assert.Error(t, err)
	_, err = Open(ctx, config.CacheConfig{Backend: "memcached"}, dir, nil)
	assert.Error(t, err)

	assert.Equal(t, DefaultTTL, TTL(config.CacheConfig{}))
	assert.Equal(t, time.Minute, TTL(config.CacheConfig{TTLSecs: 60}))
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("STREAMTAP_TEST_REDIS_URL")
	if url == "" {
		t.Skip("STREAMTAP_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	s, err := NewRedisStore(ctx, url, nil)
	require.NoError(t, err)
	defer s.Close()
	s.prefix = "streamtap:test:" + t.Name() + ":"
	defer s.Purge(ctx)

	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrMiss)

	now := time.Now()
	require.NoError(t, s.Put(ctx, &Entry{Key: "k", Events: sampleEvents(), CreatedAt: now, ExpiresAt: now.Add(time.Minute)}))
	e, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Len(t, e.Events, 2)

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
