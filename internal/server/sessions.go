package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/cluegame/internal/cluegame"
)

// Sessions holds the game sessions hosted by this server, keyed by bearer
// token. Sessions idle for longer than the idle timeout are swept, and a
// session whose slot ends is invalidated and dropped.
type Sessions struct {
	engine   *cluegame.Engine
	broker   *Broker
	logger   *slog.Logger
	boundary time.Duration
	idle     time.Duration

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	sess     *cluegame.Session
	lastSeen time.Time
}

func NewSessions(engine *cluegame.Engine, broker *Broker, logger *slog.Logger, boundary, idle time.Duration) *Sessions {
	return &Sessions{
		engine:   engine,
		broker:   broker,
		logger:   logger,
		boundary: boundary,
		idle:     idle,
		entries:  make(map[string]*sessionEntry),
	}
}

// Start begins a session for name and returns its token.
func (s *Sessions) Start(ctx context.Context, name string) (string, *cluegame.Session, error) {
	sess := s.engine.NewSession()
	if err := sess.Start(ctx, name); err != nil {
		sess.Close()
		return "", nil, err
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.entries[token] = &sessionEntry{sess: sess, lastSeen: s.engine.Now()}
	s.mu.Unlock()

	sess.Watch(s.boundary, func(next cluegame.Key) {
		s.broker.Publish(token, Event{
			Type: EventInvalidated,
			Date: next.Date.String(),
			Slot: next.Slot.String(),
		})
		s.Remove(token)
	})
	return token, sess, nil
}

// Get returns the live session for token and marks it as used.
func (s *Sessions) Get(token string) (*cluegame.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[token]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.engine.Now()
	return e.sess, true
}

// Remove closes the session for token and ends its event streams. Attempts the
// ledger never acknowledged get one last delivery try.
func (s *Sessions) Remove(token string) bool {
	s.mu.Lock()
	e, ok := s.entries[token]
	delete(s.entries, token)
	s.mu.Unlock()
	if !ok {
		return false
	}

	s.close(token, e.sess)
	return true
}

func (s *Sessions) close(token string, sess *cluegame.Session) {
	sess.Close()
	s.broker.Close(token)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sess.RetryPending(ctx); err != nil {
		s.logger.Warn("unreported attempts dropped", "session", sess.ID(), "error", err)
	}
}

// Sweep removes sessions not used within the idle timeout and returns how
// many were removed.
func (s *Sessions) Sweep() int {
	cutoff := s.engine.Now().Add(-s.idle)

	s.mu.Lock()
	stale := make(map[string]*cluegame.Session)
	for token, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			stale[token] = e.sess
			delete(s.entries, token)
		}
	}
	s.mu.Unlock()

	for token, sess := range stale {
		s.logger.Info("sweeping idle session", "session", sess.ID(), "state", sess.State().String())
		s.close(token, sess)
	}
	return len(stale)
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run sweeps periodically until ctx is done, then closes every session.
func (s *Sessions) Run(ctx context.Context) error {
	t := time.NewTicker(max(s.idle/4, time.Second))
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return nil
		case <-t.C:
			s.Sweep()
		}
	}
}

func (s *Sessions) closeAll() {
	s.mu.Lock()
	entries := s.entries
	s.entries = make(map[string]*sessionEntry)
	s.mu.Unlock()

	for token, e := range entries {
		s.close(token, e.sess)
	}
}
