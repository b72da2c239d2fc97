// Package cluegame defines the game-session engine: guess matching, slot
// scheduling and the session state machine, plus the narrow interfaces it
// uses to reach clue storage, the participant registry and the attempt
// ledger. It has no transport or storage dependencies of its own.
package cluegame

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Slot is the coarse time-of-day bucket that selects the live clue set.
type Slot int

const (
	Morning Slot = iota
	Evening
)

func (s Slot) String() string {
	if s == Evening {
		return "evening"
	}
	return "morning"
}

// ParseSlot accepts "morning"/"evening" and the "AM"/"PM" spelling.
func ParseSlot(s string) (Slot, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "morning", "am":
		return Morning, nil
	case "evening", "pm":
		return Evening, nil
	}
	return Morning, fmt.Errorf("%w: unknown slot %q", ErrInvalidInput, s)
}

func (s Slot) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Slot) UnmarshalText(b []byte) error {
	parsed, err := ParseSlot(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Key identifies one clue set.
type Key struct {
	Date Date
	Slot Slot
}

func (k Key) String() string { return k.Date.String() + "/" + k.Slot.String() }

// ClueSet is the ordered list of hints and the hidden answer for one key.
type ClueSet struct {
	Key    Key
	Clues  []string
	Answer string
}

// Status is the result carried by an attempt record.
type Status string

const (
	StatusWin  Status = "WIN"
	StatusLoss Status = "LOSS"
)

// AttemptRecord describes one guess. Records are immutable once built.
type AttemptRecord struct {
	Participant    string
	Key            Key
	ElapsedSeconds int
	Status         Status
	AttemptNumber  int
	AttemptedAt    time.Time
	CompletedDate  *Date
}

// State is the position of a session in its lifecycle.
type State int

const (
	StateNotStarted State = iota
	StateValidating
	StatePlaying
	StateWon
	StateLost
)

var stateNames = [...]string{"not_started", "validating", "playing", "won", "lost"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) Terminal() bool { return s == StateWon || s == StateLost }

// Outcome is the player-visible result of a session.
type Outcome string

const (
	OutcomePending Outcome = "PENDING"
	OutcomeWon     Outcome = "WON"
	OutcomeLost    Outcome = "LOST"
)

func (s State) Outcome() Outcome {
	switch s {
	case StateWon:
		return OutcomeWon
	case StateLost:
		return OutcomeLost
	}
	return OutcomePending
}
