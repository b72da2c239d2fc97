// Package store persists clue sets, participants, attempts and admin
// accounts in SQLite.
package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/cluegame/internal/cluegame"
)

// ErrNotFound is returned when a requested row does not exist. It is the
// same value as cluegame.ErrNotFound so the engine treats both alike.
var ErrNotFound = cluegame.ErrNotFound

const timeLayout = "2006-01-02T15:04:05.000Z"

// Store bundles the repositories sharing one database handle.
type Store struct {
	Clues        *Clues
	Participants *Participants
	Ledger       *Ledger
	Admins       *Admins
}

// New wires every repository to db. The schema must already be migrated.
func New(db *sql.DB) *Store {
	return &Store{
		Clues:        &Clues{db: db, now: time.Now},
		Participants: &Participants{db: db, now: time.Now},
		Ledger:       &Ledger{db: db, now: time.Now},
		Admins:       &Admins{db: db},
	}
}

func newID() string { return uuid.NewString() }

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }
