package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/cluegame/internal/cluegame"
)

// Sessions keeps the latest snapshot per participant in Redis. Entries expire
// ttl after their last update.
type Sessions struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessions(rdb *redis.Client, ttl time.Duration) *Sessions {
	return &Sessions{rdb: rdb, ttl: ttl}
}

func sessionKey(participant string) string {
	return keyPrefix + "session:" + cluegame.ParticipantKey(participant)
}

func (s *Sessions) Save(ctx context.Context, snap cluegame.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(snap.Participant), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (s *Sessions) Load(ctx context.Context, participant string) (cluegame.Snapshot, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(participant)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cluegame.Snapshot{}, cluegame.ErrNotFound
	}
	if err != nil {
		return cluegame.Snapshot{}, fmt.Errorf("loading snapshot: %w", err)
	}
	var snap cluegame.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return cluegame.Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}

var _ cluegame.SessionStore = (*Sessions)(nil)
