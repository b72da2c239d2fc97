package cluegame

import (
	"context"
	"strings"
	"sync"
	"time"
)

// ClueProvider supplies the clue set for a key. Implementations return
// ErrNotFound when no set exists and must be safe to call repeatedly.
type ClueProvider interface {
	Fetch(ctx context.Context, key Key) (ClueSet, error)
}

// ParticipantValidator reports whether name is an accepted participant. A
// non-nil error means the check could not be made.
type ParticipantValidator interface {
	Check(ctx context.Context, name string) (bool, error)
}

// AttemptReporter delivers an attempt to the ledger. A nil error is an ack.
// The ledger must tolerate retries and out-of-order delivery.
type AttemptReporter interface {
	Report(ctx context.Context, rec AttemptRecord) error
}

// SessionStore keeps the last known snapshot per participant.
type SessionStore interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, participant string) (Snapshot, error)
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID             string    `json:"id"`
	Participant    string    `json:"participant"`
	Date           Date      `json:"date"`
	Slot           Slot      `json:"slot"`
	State          string    `json:"state"`
	Outcome        Outcome   `json:"outcome"`
	ClueIndex      int       `json:"clueIndex"`
	TotalClues     int       `json:"totalClues"`
	Attempts       int       `json:"attempts"`
	LastReported   int       `json:"lastReported"`
	StartedAt      time.Time `json:"startedAt"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	Invalidated    bool      `json:"invalidated"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ParticipantKey folds names so snapshots are found regardless of case.
func ParticipantKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// MemoryStore is an in-process SessionStore.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]Snapshot)}
}

func (m *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	m.snaps[ParticipantKey(snap.Participant)] = snap
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, participant string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[ParticipantKey(participant)]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return snap, nil
}
