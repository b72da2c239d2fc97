package cluegame_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/playperu/cluegame/internal/cluegame"
)

type MockClueProvider struct{ mock.Mock }

func (m *MockClueProvider) Fetch(ctx context.Context, key cluegame.Key) (cluegame.ClueSet, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(cluegame.ClueSet), args.Error(1)
}

type MockValidator struct{ mock.Mock }

func (m *MockValidator) Check(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

type MockReporter struct{ mock.Mock }

func (m *MockReporter) Report(ctx context.Context, rec cluegame.AttemptRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// recordingReporter keeps every delivered record; safe for concurrent use.
type recordingReporter struct {
	mu      sync.Mutex
	records []cluegame.AttemptRecord
}

func (r *recordingReporter) Report(_ context.Context, rec cluegame.AttemptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *recordingReporter) numbers() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.AttemptNumber)
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
