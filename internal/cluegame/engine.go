package cluegame

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Engine holds the collaborators and policies shared by every session it
// creates. It carries no per-session state.
type Engine struct {
	clues     ClueProvider
	validator ParticipantValidator
	reporter  AttemptReporter
	store     SessionStore
	matcher   Matcher
	resolver  Resolver
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Engine)

func WithMatcher(m Matcher) Option { return func(e *Engine) { e.matcher = m } }

func WithResolver(r Resolver) Option { return func(e *Engine) { e.resolver = r } }

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

func WithSessionStore(s SessionStore) Option { return func(e *Engine) { e.store = s } }

func NewEngine(clues ClueProvider, validator ParticipantValidator, reporter AttemptReporter, opts ...Option) *Engine {
	e := &Engine{
		clues:     clues,
		validator: validator,
		reporter:  reporter,
		matcher:   Matcher{Threshold: DefaultThreshold},
		now:       time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolver returns the slot resolver sessions use.
func (e *Engine) Resolver() Resolver { return e.resolver }

// Now reads the engine clock.
func (e *Engine) Now() time.Time { return e.now() }

// NewSession returns a session in StateNotStarted. Close it when the player
// walks away so background work is cancelled.
func (e *Engine) NewSession() *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		engine:   e,
		id:       uuid.NewString(),
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[int]struct{}),
	}
}
