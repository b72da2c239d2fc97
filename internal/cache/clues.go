// Package cache fronts the clue store and session snapshots with Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/playperu/cluegame/internal/cluegame"
)

const keyPrefix = "cluegame:"

// ClueSource is the authoritative clue store behind the cache.
type ClueSource interface {
	cluegame.ClueProvider
	Save(ctx context.Context, set cluegame.ClueSet) error
}

type cachedClueSet struct {
	Clues  []string `json:"clues"`
	Answer string   `json:"answer"`
}

// Clues is a read-through, write-invalidate cache over a ClueSource.
// Concurrent misses for the same key share one source fetch, which runs
// detached from any single caller's cancellation. Redis failures degrade to
// reading the source directly.
type Clues struct {
	rdb          *redis.Client
	src          ClueSource
	ttl          time.Duration
	fetchTimeout time.Duration
	group        singleflight.Group
	logger       *slog.Logger
}

func NewClues(rdb *redis.Client, src ClueSource, ttl time.Duration, logger *slog.Logger) *Clues {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Clues{rdb: rdb, src: src, ttl: ttl, fetchTimeout: 10 * time.Second, logger: logger}
}

func clueKey(k cluegame.Key) string { return keyPrefix + "clues:" + k.String() }

func (c *Clues) Fetch(ctx context.Context, key cluegame.Key) (cluegame.ClueSet, error) {
	raw, err := c.rdb.Get(ctx, clueKey(key)).Bytes()
	switch {
	case err == nil:
		var doc cachedClueSet
		if err := json.Unmarshal(raw, &doc); err == nil {
			return cluegame.ClueSet{Key: key, Clues: doc.Clues, Answer: doc.Answer}, nil
		}
		c.logger.Warn("discarding corrupt cached clue set", "key", key.String())
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("clue cache read failed", "key", key.String(), "error", err)
	}

	ch := c.group.DoChan(key.String(), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		set, err := c.src.Fetch(fctx, key)
		if err != nil {
			return cluegame.ClueSet{}, err
		}
		c.store(fctx, set)
		return set, nil
	})

	select {
	case <-ctx.Done():
		return cluegame.ClueSet{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return cluegame.ClueSet{}, res.Err
		}
		return res.Val.(cluegame.ClueSet), nil
	}
}

// Save writes through to the source and drops the cached copy.
func (c *Clues) Save(ctx context.Context, set cluegame.ClueSet) error {
	if err := c.src.Save(ctx, set); err != nil {
		return err
	}
	return c.Invalidate(ctx, set.Key)
}

func (c *Clues) Invalidate(ctx context.Context, key cluegame.Key) error {
	if err := c.rdb.Del(ctx, clueKey(key)).Err(); err != nil {
		return fmt.Errorf("invalidating cached clues %s: %w", key, err)
	}
	return nil
}

func (c *Clues) store(ctx context.Context, set cluegame.ClueSet) {
	raw, err := json.Marshal(cachedClueSet{Clues: set.Clues, Answer: set.Answer})
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, clueKey(set.Key), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("clue cache write failed", "key", set.Key.String(), "error", err)
	}
}

var _ cluegame.ClueProvider = (*Clues)(nil)
