package cluegame_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/playperu/cluegame/internal/cluegame"
)

var (
	morning   = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	todayKey  = cluegame.Key{Date: cluegame.Date{Year: 2025, Month: time.March, Day: 14}, Slot: cluegame.Morning}
	fiveClues = cluegame.ClueSet{
		Key:    todayKey,
		Clues:  []string{"A", "B", "C", "D", "E"},
		Answer: "Inception",
	}
)

type fixture struct {
	clues     *MockClueProvider
	validator *MockValidator
	reporter  *MockReporter
	clock     *fakeClock
	store     *cluegame.MemoryStore
	engine    *cluegame.Engine
}

func newFixture(t *testing.T, opts ...cluegame.Option) *fixture {
	t.Helper()
	f := &fixture{
		clues:     new(MockClueProvider),
		validator: new(MockValidator),
		reporter:  new(MockReporter),
		clock:     newClock(morning),
		store:     cluegame.NewMemoryStore(),
	}
	opts = append([]cluegame.Option{
		cluegame.WithClock(f.clock.Now),
		cluegame.WithSessionStore(f.store),
	}, opts...)
	f.engine = cluegame.NewEngine(f.clues, f.validator, f.reporter, opts...)
	return f
}

// started returns a playing session for "ana" over set.
func (f *fixture) started(t *testing.T, set cluegame.ClueSet) *cluegame.Session {
	t.Helper()
	f.clues.On("Fetch", mock.Anything, todayKey).Return(set, nil)
	f.validator.On("Check", mock.Anything, "ana").Return(true, nil)
	f.reporter.On("Report", mock.Anything, mock.Anything).Return(nil)

	s := f.engine.NewSession()
	t.Cleanup(s.Close)
	require.NoError(t, s.Start(context.Background(), "ana"))
	require.Equal(t, cluegame.StatePlaying, s.State())
	return s
}

func TestSessionStartRejectsEmptyName(t *testing.T) {
	f := newFixture(t)
	s := f.engine.NewSession()

	err := s.Start(context.Background(), "   ")

	assert.ErrorIs(t, err, cluegame.ErrInvalidInput)
	assert.Equal(t, cluegame.StateNotStarted, s.State())
	f.clues.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	f.validator.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestSessionStartWithoutClues(t *testing.T) {
	tests := []struct {
		name string
		set  cluegame.ClueSet
		err  error
	}{
		{"not found", cluegame.ClueSet{}, cluegame.ErrNotFound},
		{"empty list", cluegame.ClueSet{Key: todayKey, Answer: "Inception"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.clues.On("Fetch", mock.Anything, todayKey).Return(tt.set, tt.err)
			s := f.engine.NewSession()

			err := s.Start(context.Background(), "ana")

			assert.ErrorIs(t, err, cluegame.ErrNoClues)
			assert.Equal(t, cluegame.StateNotStarted, s.State())
			f.validator.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
		})
	}
}

func TestSessionStartClueTransportError(t *testing.T) {
	f := newFixture(t)
	f.clues.On("Fetch", mock.Anything, todayKey).Return(cluegame.ClueSet{}, errors.New("connection refused"))
	s := f.engine.NewSession()

	err := s.Start(context.Background(), "ana")

	assert.ErrorIs(t, err, cluegame.ErrTransport)
	assert.NotErrorIs(t, err, cluegame.ErrNoClues)
	assert.Equal(t, cluegame.StateNotStarted, s.State())
}

func TestSessionStartInvalidParticipantThenRetry(t *testing.T) {
	f := newFixture(t)
	f.clues.On("Fetch", mock.Anything, todayKey).Return(fiveClues, nil)
	f.validator.On("Check", mock.Anything, "mallory").Return(false, nil)
	f.validator.On("Check", mock.Anything, "ana").Return(true, nil)
	s := f.engine.NewSession()

	err := s.Start(context.Background(), "mallory")
	require.ErrorIs(t, err, cluegame.ErrInvalidParticipant)
	assert.Equal(t, cluegame.StateNotStarted, s.State())

	require.NoError(t, s.Start(context.Background(), " ana "))
	assert.Equal(t, cluegame.StatePlaying, s.State())

	clue, idx, ok := s.Clue()
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "A", clue)
}

func TestSessionStartValidatorUnavailable(t *testing.T) {
	f := newFixture(t)
	cause := errors.New("dial tcp: i/o timeout")
	f.clues.On("Fetch", mock.Anything, todayKey).Return(fiveClues, nil)
	f.validator.On("Check", mock.Anything, "ana").Return(false, cause)
	s := f.engine.NewSession()

	err := s.Start(context.Background(), "ana")

	assert.ErrorIs(t, err, cluegame.ErrValidatorUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, cluegame.ErrInvalidParticipant)
	assert.Equal(t, cluegame.StateNotStarted, s.State())
}

func TestSessionStartTwice(t *testing.T) {
	f := newFixture(t)
	s := f.started(t, fiveClues)

	err := s.Start(context.Background(), "ana")
	assert.ErrorIs(t, err, cluegame.ErrAlreadyStarted)
	f.clues.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestSessionWinTiming(t *testing.T) {
	f := newFixture(t)
	s := f.started(t, fiveClues)

	f.clock.Advance(42 * time.Second)
	v, err := s.Guess(context.Background(), "inception")
	require.NoError(t, err)

	assert.True(t, v.Correct)
	assert.True(t, v.Reported)
	assert.Equal(t, cluegame.StateWon, v.State)
	assert.Empty(t, v.Clue)
	assert.Equal(t, cluegame.StatusWin, v.Record.Status)
	assert.Equal(t, 42, v.Record.ElapsedSeconds)
	assert.Equal(t, 1, v.Record.AttemptNumber)
	require.NotNil(t, v.Record.CompletedDate)
	assert.Equal(t, todayKey.Date, *v.Record.CompletedDate)

	snap := s.Snapshot()
	assert.Equal(t, cluegame.OutcomeWon, snap.Outcome)
	assert.Equal(t, 42, snap.ElapsedSeconds)

	answer, ok := s.Answer()
	assert.True(t, ok)
	assert.Equal(t, "Inception", answer)

	_, err = s.Guess(context.Background(), "inception")
	assert.ErrorIs(t, err, cluegame.ErrNotPlaying)
	f.reporter.AssertNumberOfCalls(t, "Report", 1)
}

func TestSessionElapsedIsRecomputedEachAttempt(t *testing.T) {
	f := newFixture(t)
	s := f.started(t, fiveClues)

	f.clock.Advance(10 * time.Second)
	v1, err := s.Guess(context.Background(), "memento")
	require.NoError(t, err)
	f.clock.Advance(5*time.Second + 900*time.Millisecond)
	v2, err := s.Guess(context.Background(), "tenet")
	require.NoError(t, err)

	assert.Equal(t, 10, v1.Record.ElapsedSeconds)
	assert.Equal(t, 15, v2.Record.ElapsedSeconds)
	assert.Nil(t, v1.Record.CompletedDate)
}

func TestSessionExhaustion(t *testing.T) {
	f := newFixture(t)
	s := f.started(t, fiveClues)

	wrong := []string{"Memento", "Tenet", "Dunkirk", "Oppenheimer", "Interstellar"}
	var last cluegame.Verdict
	for i, g := range wrong {
		v, err := s.Guess(context.Background(), g)
		require.NoError(t, err)
		assert.False(t, v.Correct)
		assert.Equal(t, i+1, v.ClueIndex)
		last = v
	}

	assert.Equal(t, cluegame.StateLost, last.State)
	assert.Equal(t, cluegame.StatusLoss, last.Record.Status)
	assert.Equal(t, 5, last.Record.AttemptNumber)

	snap := s.Snapshot()
	assert.Equal(t, 5, snap.ClueIndex)
	assert.Equal(t, cluegame.OutcomeLost, snap.Outcome)

	// The last wrong guess is the final record; nothing extra is sent.
	f.reporter.AssertNumberOfCalls(t, "Report", 5)

	_, _, ok := s.Clue()
	assert.False(t, ok)
	_, err := s.Guess(context.Background(), "Inception")
	assert.ErrorIs(t, err, cluegame.ErrNotPlaying)
}

func TestSessionAttemptsAreMonotonic(t *testing.T) {
	f := newFixture(t)
	s := f.started(t, fiveClues)

	for i := 1; i <= 4; i++ {
		before := s.Snapshot()
		_, err := s.Guess(context.Background(), "nope")
		require.NoError(t, err)
		after := s.Snapshot()

		assert.Equal(t, before.Attempts+1, after.Attempts)
		assert.LessOrEqual(t, after.LastReported, after.Attempts)
	}
}

func TestSessionNoDuplicateReport(t *testing.T) {
	f := newFixture(t)
	s := f.started(t, fiveClues)

	v, err := s.Guess(context.Background(), "memento")
	require.NoError(t, err)
	require.True(t, v.Reported)

	// A replayed record with the same attempt number is not sent again.
	require.NoError(t, s.Report(context.Background(), v.Record))
	require.NoError(t, s.RetryPending(context.Background()))

	f.reporter.AssertNumberOfCalls(t, "Report", 1)
	assert.Equal(t, 1, s.Snapshot().LastReported)
}

func TestSessionReportRejectsUnknownAttempt(t *testing.T) {
	f := newFixture(t)
	s := f.started(t, fiveClues)

	for _, n := range []int{0, 1, 7} {
		err := s.Report(context.Background(), cluegame.AttemptRecord{AttemptNumber: n})
		assert.ErrorIs(t, err, cluegame.ErrInvalidInput, "attempt %d", n)
	}
	f.reporter.AssertNotCalled(t, "Report", mock.Anything, mock.Anything)
}

func TestSessionReportFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	f.clues.On("Fetch", mock.Anything, todayKey).Return(fiveClues, nil)
	f.validator.On("Check", mock.Anything, "ana").Return(true, nil)
	f.reporter.On("Report", mock.Anything, mock.Anything).Return(errors.New("ledger down")).Once()
	f.reporter.On("Report", mock.Anything, mock.Anything).Return(nil)

	s := f.engine.NewSession()
	defer s.Close()
	require.NoError(t, s.Start(context.Background(), "ana"))

	v, err := s.Guess(context.Background(), "memento")
	require.NoError(t, err, "a reporting failure is not a guess failure")
	assert.False(t, v.Reported)
	assert.Equal(t, cluegame.StatePlaying, v.State)
	assert.Equal(t, 1, v.ClueIndex)
	assert.Equal(t, 0, s.Snapshot().LastReported)

	require.NoError(t, s.RetryPending(context.Background()))
	assert.Equal(t, 1, s.Snapshot().LastReported)
	f.reporter.AssertNumberOfCalls(t, "Report", 2)

	require.NoError(t, s.RetryPending(context.Background()))
	f.reporter.AssertNumberOfCalls(t, "Report", 2)
}

func TestSessionStaleAttemptIsNotResent(t *testing.T) {
	f := newFixture(t)
	f.clues.On("Fetch", mock.Anything, todayKey).Return(fiveClues, nil)
	f.validator.On("Check", mock.Anything, "ana").Return(true, nil)
	isAttempt := func(n int) any {
		return mock.MatchedBy(func(rec cluegame.AttemptRecord) bool { return rec.AttemptNumber == n })
	}
	f.reporter.On("Report", mock.Anything, isAttempt(1)).Return(errors.New("ledger down"))
	f.reporter.On("Report", mock.Anything, isAttempt(2)).Return(nil)

	s := f.engine.NewSession()
	defer s.Close()
	require.NoError(t, s.Start(context.Background(), "ana"))

	first, err := s.Guess(context.Background(), "memento")
	require.NoError(t, err)
	assert.False(t, first.Reported)
	second, err := s.Guess(context.Background(), "tenet")
	require.NoError(t, err)
	assert.True(t, second.Reported)
	require.Equal(t, 2, s.Snapshot().LastReported)

	require.NoError(t, s.Report(context.Background(), first.Record))
	require.NoError(t, s.RetryPending(context.Background()))

	f.reporter.AssertNumberOfCalls(t, "Report", 2)
}

func TestSessionGuessValidation(t *testing.T) {
	f := newFixture(t)
	s := f.engine.NewSession()
	defer s.Close()

	_, err := s.Guess(context.Background(), "inception")
	assert.ErrorIs(t, err, cluegame.ErrNotPlaying)

	s = f.started(t, fiveClues)
	_, err = s.Guess(context.Background(), "  ")
	assert.ErrorIs(t, err, cluegame.ErrInvalidInput)
	assert.Equal(t, 0, s.Snapshot().Attempts)
	f.reporter.AssertNotCalled(t, "Report", mock.Anything, mock.Anything)
}

func TestSessionScenarioNearMiss(t *testing.T) {
	tests := []struct {
		name         string
		threshold    float64
		wantAttempts int
		wantClueIdx  int
	}{
		{"default threshold accepts typo", cluegame.DefaultThreshold, 1, 0},
		{"strict threshold rejects typo", 0.95, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, cluegame.WithMatcher(cluegame.NewMatcher(tt.threshold)))
			s := f.started(t, fiveClues)

			var v cluegame.Verdict
			for _, g := range []string{"incepton", "inception"} {
				var err error
				v, err = s.Guess(context.Background(), g)
				require.NoError(t, err)
				if v.Correct {
					break
				}
			}

			assert.Equal(t, cluegame.StateWon, v.State)
			assert.Equal(t, tt.wantAttempts, v.Record.AttemptNumber)
			assert.Equal(t, tt.wantClueIdx, s.Snapshot().ClueIndex)
		})
	}
}

func TestSessionConcurrentGuesses(t *testing.T) {
	const n = 40
	clues := make([]string, n)
	for i := range clues {
		clues[i] = fmt.Sprintf("clue %d", i+1)
	}
	set := cluegame.ClueSet{Key: todayKey, Clues: clues, Answer: "Inception"}

	f := newFixture(t)
	rep := &recordingReporter{}
	f.clues.On("Fetch", mock.Anything, todayKey).Return(set, nil)
	f.validator.On("Check", mock.Anything, "ana").Return(true, nil)
	engine := cluegame.NewEngine(f.clues, f.validator, rep, cluegame.WithClock(f.clock.Now))

	s := engine.NewSession()
	defer s.Close()
	require.NoError(t, s.Start(context.Background(), "ana"))

	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Guess(context.Background(), "wrong")
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, n, snap.Attempts)
	assert.Equal(t, n, snap.ClueIndex)
	assert.Equal(t, cluegame.OutcomeLost, snap.Outcome)

	// Acks may land out of order, so an attempt overtaken by a higher
	// acknowledged one is dropped. None is ever sent twice and the last one
	// always reaches the ledger.
	got := rep.numbers()
	sort.Ints(got)
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i], "attempt %d sent twice", got[i])
	}
	assert.Equal(t, n, got[len(got)-1])
	assert.Equal(t, n, snap.LastReported)
}

func TestSessionSnapshotPersisted(t *testing.T) {
	f := newFixture(t)
	s := f.started(t, fiveClues)

	_, err := s.Guess(context.Background(), "memento")
	require.NoError(t, err)

	snap, err := f.store.Load(context.Background(), "ANA")
	require.NoError(t, err)
	assert.Equal(t, s.ID(), snap.ID)
	assert.Equal(t, 1, snap.Attempts)
	assert.Equal(t, 1, snap.LastReported)
	assert.Equal(t, "playing", snap.State)
	assert.Equal(t, todayKey.Date, snap.Date)

	_, err = f.store.Load(context.Background(), "bob")
	assert.ErrorIs(t, err, cluegame.ErrNotFound)
}

type blockingClues struct{ entered chan struct{} }

func (b blockingClues) Fetch(ctx context.Context, _ cluegame.Key) (cluegame.ClueSet, error) {
	close(b.entered)
	<-ctx.Done()
	return cluegame.ClueSet{}, ctx.Err()
}

func TestSessionCloseCancelsFetch(t *testing.T) {
	clues := blockingClues{entered: make(chan struct{})}
	engine := cluegame.NewEngine(clues, new(MockValidator), new(MockReporter))
	s := engine.NewSession()

	errc := make(chan error, 1)
	go func() { errc <- s.Start(context.Background(), "ana") }()

	<-clues.entered
	s.Close()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, cluegame.ErrTransport)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Close")
	}
	assert.Equal(t, cluegame.StateNotStarted, s.State())
}

type blockingValidator struct{ entered, release chan struct{} }

func (b blockingValidator) Check(context.Context, string) (bool, error) {
	close(b.entered)
	<-b.release
	return true, nil
}

func TestSessionCloseDuringValidation(t *testing.T) {
	f := newFixture(t)
	f.clues.On("Fetch", mock.Anything, todayKey).Return(fiveClues, nil)
	validator := blockingValidator{entered: make(chan struct{}), release: make(chan struct{})}
	engine := cluegame.NewEngine(f.clues, validator, new(MockReporter),
		cluegame.WithClock(f.clock.Now),
		cluegame.WithSessionStore(f.store),
	)
	s := engine.NewSession()

	errc := make(chan error, 1)
	go func() { errc <- s.Start(context.Background(), "ana") }()

	<-validator.entered
	s.Close()
	close(validator.release)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return")
	}
	assert.Equal(t, cluegame.StateNotStarted, s.State())
	_, err := f.store.Load(context.Background(), "ana")
	assert.ErrorIs(t, err, cluegame.ErrNotFound, "a closed session must not persist a snapshot")
}
