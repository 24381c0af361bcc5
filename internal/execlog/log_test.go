package execlog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu      sync.Mutex
	entries []Entry
	closed  bool
}

func (c *captureSink) Append(_ context.Context, batch []Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, batch...)
	return nil
}

func (c *captureSink) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *captureSink) snapshot() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.entries...)
}

func TestLogFansOutToSinks(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	l := New(Config{MaxBatchWait: 10 * time.Millisecond}, sink)

	l.Info(ActionWebhook, "stage primary received")
	l.Error(ActionFetch, "remote API returned 500")
	l.Close(context.Background())

	entries := sink.snapshot()
	require.Len(t, entries, 2)
	require.Equal(t, LevelInfo, entries[0].Level)
	require.Equal(t, ActionWebhook, entries[0].Action)
	require.Equal(t, LevelError, entries[1].Level)
	require.False(t, entries[0].TS.IsZero())
	require.True(t, sink.closed)
}

func TestLogDropsInvalidEntries(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	l := New(Config{MaxBatchWait: 10 * time.Millisecond}, sink)

	l.Append(Level("BOGUS"), ActionFetch, "x")
	l.Append(LevelInfo, "", "missing action")
	l.Close(context.Background())

	require.Empty(t, sink.snapshot())
}

func TestNopLogIsSafe(t *testing.T) {
	t.Parallel()

	l := NewNop()
	l.Info(ActionJoin, "no sinks")
	l.Close(context.Background())

	var nilLog *Log
	nilLog.Info(ActionJoin, "nil receiver is a no-op")
}
