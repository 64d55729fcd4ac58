package intercept

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapperReusesObserverSet(t *testing.T) {
	buf := NewBuffer[string]()
	dbg := NewDebug[string](nil)
	w := NewWrapper[string](nil, buf, dbg)

	for round := 0; round < 2; round++ {
		s := w.Wrap(context.Background(), FromSlice([]string{"a", "b"}))
		got, err := collect(t, s)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, got)
		waitDone(t, s, time.Second)
	}

	assert.Equal(t, []string{"a", "b", "a", "b"}, buf.Events())
	assert.Equal(t, 4, dbg.Count())
	assert.Len(t, w.Observers(), 2)
}

func TestWrapperObserversIsACopy(t *testing.T) {
	w := NewWrapper[int](New[int](), NewBuffer[int]())
	obs := w.Observers()
	obs[0] = nil
	assert.NotNil(t, w.Observers()[0])
}

func TestBufferLifecycle(t *testing.T) {
	buf := NewBuffer[int]()
	assert.Equal(t, StatePending, buf.State())

	s := Intercept[int](context.Background(), FromSlice([]int{1, 2, 3}), buf)
	_, err := collectInts(s)
	require.NoError(t, err)
	waitDone(t, s, time.Second)

	assert.Equal(t, []int{1, 2, 3}, buf.Events())
	assert.Equal(t, 3, buf.Len())
	assert.Equal(t, StateCompleted, buf.State())
	assert.NoError(t, buf.Err())
}

func TestBufferRecordsSourceError(t *testing.T) {
	boom := errors.New("upstream closed")
	buf := NewBuffer[int]()

	s := Intercept[int](context.Background(), Failing([]int{7}, boom), buf)
	_, err := collectInts(s)
	require.ErrorIs(t, err, boom)
	waitDone(t, s, time.Second)

	assert.Equal(t, []int{7}, buf.Events())
	assert.Equal(t, StateErrored, buf.State())
	assert.Same(t, boom, buf.Err())
}

func TestBufferEventsIsASnapshot(t *testing.T) {
	buf := NewBuffer[int]()
	require.NoError(t, buf.Receive(context.Background(), 1))
	snap := buf.Events()
	snap[0] = 99
	assert.Equal(t, []int{1}, buf.Events())
}

func TestDebugLogsLifecycle(t *testing.T) {
	var out bytes.Buffer
	log := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	dbg := NewDebug[string](log)
	assert.True(t, dbg.StartTime().IsZero())

	s := Intercept[string](context.Background(), FromSlice(names(3)), dbg)
	_, err := collect(t, s)
	require.NoError(t, err)
	waitDone(t, s, time.Second)

	assert.Equal(t, 3, dbg.Count())
	assert.False(t, dbg.StartTime().IsZero())

	logs := out.String()
	assert.Equal(t, 3, strings.Count(logs, "msg=event"))
	assert.Contains(t, logs, "stream complete")
	assert.Contains(t, logs, "observer=debug")
}

func TestDebugLogsError(t *testing.T) {
	var out bytes.Buffer
	log := slog.New(slog.NewTextHandler(&out, nil))
	dbg := NewDebug[string](log)

	dbg.OnError(context.Background(), errors.New("broken pipe"))

	assert.Contains(t, out.String(), "stream error")
	assert.Contains(t, out.String(), "broken pipe")
	assert.Zero(t, dbg.Count())
}

func collectInts(s *Stream[int]) ([]int, error) {
	var out []int
	for ev, err := range s.All() {
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
	return out, nil
}
