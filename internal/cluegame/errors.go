package cluegame

import "errors"

var (
	// ErrInvalidInput is returned for an empty participant name or guess.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoClues means the live clue set is missing or empty.
	ErrNoClues = errors.New("no clues available")
	// ErrInvalidParticipant means the registry rejected the name.
	ErrInvalidParticipant = errors.New("invalid participant")
	// ErrValidatorUnavailable wraps a transport failure while checking a name.
	ErrValidatorUnavailable = errors.New("participant validator unavailable")
	// ErrTransport marks any other collaborator failure.
	ErrTransport = errors.New("collaborator unavailable")
	// ErrNotFound is returned by collaborators for a missing clue set or snapshot.
	ErrNotFound = errors.New("not found")
)

var (
	ErrAlreadyStarted     = errors.New("session already started")
	ErrNotPlaying         = errors.New("session is not playing")
	ErrSessionInvalidated = errors.New("session invalidated by slot change")
)
