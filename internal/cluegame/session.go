package cluegame

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Session is one player's run through one clue set. All state changes
// happen under mu; collaborator I/O never holds it.
type Session struct {
	engine *Engine
	id     string

	// ctx is cancelled by Close and bounds clue fetches and the boundary watcher.
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	state        State
	starting     bool
	participant  string
	set          ClueSet
	clueIndex    int
	attempts     int
	lastReported int
	inflight     map[int]struct{}
	records      []AttemptRecord
	startedAt    time.Time
	elapsed      int
	invalidated  bool
	watching     bool
}

// Verdict is the result of one guess.
type Verdict struct {
	Correct bool
	State   State
	Record  AttemptRecord
	// Reported is true when the ledger acknowledged the record.
	Reported  bool
	ClueIndex int
	// Clue is the next clue to show; empty once the session is over.
	Clue string
}

func (s *Session) ID() string { return s.id }

// Start validates the participant against the live clue set and begins play.
// On any error the session stays in StateNotStarted and Start may be retried.
func (s *Session) Start(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: participant name is required", ErrInvalidInput)
	}

	s.mu.Lock()
	if s.state != StateNotStarted || s.starting {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: state %s", ErrAlreadyStarted, state)
	}
	s.starting = true
	s.mu.Unlock()

	set, err := s.fetch(ctx)
	if err != nil {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.state = StateValidating
	s.participant = name
	s.mu.Unlock()

	ok, err := s.engine.validator.Check(ctx, name)

	s.mu.Lock()
	s.starting = false
	switch {
	case s.ctx.Err() != nil:
		s.state = StateNotStarted
		s.mu.Unlock()
		return fmt.Errorf("starting closed session: %w", s.ctx.Err())
	case err != nil:
		s.state = StateNotStarted
		s.mu.Unlock()
		s.engine.logger.Warn("participant check failed", "participant", name, "error", err)
		return fmt.Errorf("%w: %w", ErrValidatorUnavailable, err)
	case !ok:
		s.state = StateNotStarted
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrInvalidParticipant, name)
	}

	s.set = set
	s.state = StatePlaying
	s.startedAt = s.engine.now()
	s.attempts = 0
	s.lastReported = 0
	s.clueIndex = 0
	s.elapsed = 0
	s.records = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.engine.logger.Info("session started",
		"session", s.id,
		"participant", name,
		"key", set.Key.String(),
		"clues", len(set.Clues),
	)
	s.persist(ctx, snap)
	return nil
}

// fetch loads the clue set for the current key. The request is abandoned
// when either ctx or the session is cancelled.
func (s *Session) fetch(ctx context.Context) (ClueSet, error) {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	unlink := context.AfterFunc(s.ctx, stop)
	defer unlink()

	key := s.engine.resolver.Resolve(s.engine.now())
	set, err := s.engine.clues.Fetch(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		set = ClueSet{}
	case err != nil:
		return ClueSet{}, fmt.Errorf("%w: fetching clues for %s: %w", ErrTransport, key, err)
	}
	if len(set.Clues) == 0 {
		return ClueSet{}, fmt.Errorf("%w for %s", ErrNoClues, key)
	}
	set.Key = key
	set.Clues = slices.Clone(set.Clues)
	return set, nil
}

// Guess evaluates text against the answer, advances the session and reports
// the resulting attempt. Reporting failures are logged and never undo the
// transition.
func (s *Session) Guess(ctx context.Context, text string) (Verdict, error) {
	if strings.TrimSpace(text) == "" {
		return Verdict{}, fmt.Errorf("%w: guess is required", ErrInvalidInput)
	}

	s.mu.Lock()
	if s.invalidated {
		s.mu.Unlock()
		return Verdict{}, ErrSessionInvalidated
	}
	if s.state != StatePlaying {
		state := s.state
		s.mu.Unlock()
		return Verdict{}, fmt.Errorf("%w: state %s", ErrNotPlaying, state)
	}

	now := s.engine.now()
	s.attempts++
	s.elapsed = max(0, int(now.Sub(s.startedAt)/time.Second))
	rec := AttemptRecord{
		Participant:    s.participant,
		Key:            s.set.Key,
		ElapsedSeconds: s.elapsed,
		AttemptNumber:  s.attempts,
		AttemptedAt:    now,
	}

	correct := s.engine.matcher.Match(text, s.set.Answer)
	if correct {
		today := s.engine.resolver.Today(now)
		rec.Status = StatusWin
		rec.CompletedDate = &today
		s.state = StateWon
	} else {
		rec.Status = StatusLoss
		s.clueIndex++
		if s.clueIndex == len(s.set.Clues) {
			s.state = StateLost
		}
	}
	s.records = append(s.records, rec)

	v := Verdict{
		Correct:   correct,
		State:     s.state,
		Record:    rec,
		ClueIndex: s.clueIndex,
	}
	if s.state == StatePlaying {
		v.Clue = s.set.Clues[s.clueIndex]
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	v.Reported = s.Report(ctx, rec) == nil
	return v, nil
}

// Report sends the attempt with rec.AttemptNumber to the ledger unless an
// attempt at or above that number was already acknowledged, or it is being
// delivered right now; both cases return nil. The record sent is the one the
// session produced, not the argument.
func (s *Session) Report(ctx context.Context, rec AttemptRecord) error {
	n := rec.AttemptNumber

	s.mu.Lock()
	if n < 1 || n > len(s.records) {
		s.mu.Unlock()
		return fmt.Errorf("%w: attempt %d was never made", ErrInvalidInput, n)
	}
	if n <= s.lastReported {
		s.mu.Unlock()
		s.engine.logger.Debug("skipping stale attempt", "session", s.id, "attempt", n, "last_reported", s.lastReported)
		return nil
	}
	if _, busy := s.inflight[n]; busy {
		s.mu.Unlock()
		return nil
	}
	s.inflight[n] = struct{}{}
	rec = s.records[n-1]
	s.mu.Unlock()

	err := s.engine.reporter.Report(ctx, rec)

	s.mu.Lock()
	delete(s.inflight, n)
	if err == nil {
		s.lastReported = max(s.lastReported, n)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err != nil {
		s.engine.logger.Error("reporting attempt failed",
			"session", s.id,
			"participant", rec.Participant,
			"attempt", n,
			"status", string(rec.Status),
			"error", err,
		)
		return fmt.Errorf("%w: reporting attempt %d: %w", ErrTransport, n, err)
	}
	s.persist(ctx, snap)
	return nil
}

// RetryPending re-sends every attempt above the last acknowledged one, oldest
// first.
func (s *Session) RetryPending(ctx context.Context) error {
	s.mu.Lock()
	var pending []AttemptRecord
	for _, rec := range s.records {
		if rec.AttemptNumber > s.lastReported {
			pending = append(pending, rec)
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, rec := range pending {
		if err := s.Report(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clue returns the clue currently shown and its index. ok is false unless the
// session is playing.
func (s *Session) Clue() (clue string, index int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return "", s.clueIndex, false
	}
	return s.set.Clues[s.clueIndex], s.clueIndex, true
}

// Answer is revealed only once the session has ended.
func (s *Session) Answer() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Terminal() {
		return "", false
	}
	return s.set.Answer, true
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Records returns a copy of every attempt the session produced.
func (s *Session) Records() []AttemptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

// Invalidate marks the session stale after a slot change. It waits for any
// transition in progress; later guesses fail with ErrSessionInvalidated.
func (s *Session) Invalidate(ctx context.Context) {
	s.mu.Lock()
	if s.invalidated {
		s.mu.Unlock()
		return
	}
	s.invalidated = true
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.engine.logger.Info("session invalidated", "session", s.id, "participant", snap.Participant)
	s.persist(ctx, snap)
}

func (s *Session) Invalidated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidated
}

// Close cancels the boundary watcher and any clue fetch in flight. Reports
// already sent finish on their own contexts.
func (s *Session) Close() {
	s.cancel()
}

// Done is closed once the session has been closed.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:             s.id,
		Participant:    s.participant,
		Date:           s.set.Key.Date,
		Slot:           s.set.Key.Slot,
		State:          s.state.String(),
		Outcome:        s.state.Outcome(),
		ClueIndex:      s.clueIndex,
		TotalClues:     len(s.set.Clues),
		Attempts:       s.attempts,
		LastReported:   s.lastReported,
		StartedAt:      s.startedAt,
		ElapsedSeconds: s.elapsed,
		Invalidated:    s.invalidated,
		UpdatedAt:      s.engine.now(),
	}
}

func (s *Session) persist(ctx context.Context, snap Snapshot) {
	if s.engine.store == nil || snap.Participant == "" {
		return
	}
	if err := s.engine.store.Save(ctx, snap); err != nil {
		s.engine.logger.Warn("saving session snapshot failed", "session", s.id, "error", err)
	}
}
