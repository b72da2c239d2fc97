package cluegame_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playperu/cluegame/internal/cluegame"
)

func TestSessionWatchInvalidatesAtNoon(t *testing.T) {
	f := newFixture(t)
	f.clock = newClock(time.Date(2025, 3, 14, 11, 59, 59, 0, time.UTC))
	f.engine = cluegame.NewEngine(f.clues, f.validator, f.reporter, cluegame.WithClock(f.clock.Now))
	s := f.started(t, fiveClues)

	notified := make(chan cluegame.Key, 1)
	s.Watch(5*time.Millisecond, func(k cluegame.Key) { notified <- k })
	s.Watch(5*time.Millisecond, func(cluegame.Key) { t.Error("second watcher must not run") })

	time.Sleep(20 * time.Millisecond)
	assert.False(t, s.Invalidated(), "still morning")

	f.clock.Advance(2 * time.Second)

	select {
	case k := <-notified:
		assert.Equal(t, cluegame.Evening, k.Slot)
		assert.Equal(t, todayKey.Date, k.Date)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not notice the slot change")
	}

	assert.True(t, s.Invalidated())
	assert.True(t, s.Snapshot().Invalidated)
	_, err := s.Guess(context.Background(), "inception")
	assert.ErrorIs(t, err, cluegame.ErrSessionInvalidated)
}

func TestWaitForBoundaryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clock := newClock(morning)
	current := cluegame.Resolve(morning, 0)

	done := make(chan bool, 1)
	go func() {
		_, ok := cluegame.WaitForBoundary(ctx, cluegame.Resolver{}, clock.Now, time.Millisecond, current)
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForBoundary ignored cancellation")
	}
}

func TestWaitForBoundaryReturnsNextKey(t *testing.T) {
	clock := newClock(time.Date(2025, 3, 14, 23, 59, 59, 0, time.UTC))
	r := cluegame.Resolver{}
	current := r.Resolve(clock.Now())
	require.Equal(t, cluegame.Evening, current.Slot)

	clock.Advance(time.Second)
	next, ok := cluegame.WaitForBoundary(context.Background(), r, clock.Now, time.Millisecond, current)

	require.True(t, ok)
	assert.Equal(t, "2025-03-15", next.Date.String())
	assert.Equal(t, cluegame.Morning, next.Slot)
}

func TestClosedSessionStopsWatching(t *testing.T) {
	f := newFixture(t)
	s := f.started(t, fiveClues)

	s.Watch(time.Millisecond, func(cluegame.Key) { t.Error("closed session was notified") })
	s.Close()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed")
	}

	f.clock.Advance(12 * time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, s.Invalidated())
}
