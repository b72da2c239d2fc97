package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/playperu/cluegame/internal/cluegame"
)

type clueSetDoc struct {
	Clues  []string `json:"clues"`
	Answer string   `json:"answer"`
}

// Clues stores one clue set per date and slot.
type Clues struct {
	db  *sql.DB
	now func() time.Time
}

func (c *Clues) Fetch(ctx context.Context, key cluegame.Key) (cluegame.ClueSet, error) {
	var data string
	err := c.db.QueryRowContext(ctx,
		`SELECT json(data) FROM clue_sets WHERE date = ? AND slot = ?`,
		key.Date.String(), key.Slot.String(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return cluegame.ClueSet{}, ErrNotFound
	}
	if err != nil {
		return cluegame.ClueSet{}, fmt.Errorf("querying clue set %s: %w", key, err)
	}

	var doc clueSetDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return cluegame.ClueSet{}, fmt.Errorf("decoding clue set %s: %w", key, err)
	}
	return cluegame.ClueSet{Key: key, Clues: doc.Clues, Answer: doc.Answer}, nil
}

// Save creates or replaces the clue set for set.Key.
func (c *Clues) Save(ctx context.Context, set cluegame.ClueSet) error {
	if len(set.Clues) == 0 || set.Answer == "" {
		return fmt.Errorf("%w: a clue set needs at least one clue and an answer", cluegame.ErrInvalidInput)
	}
	data, err := json.Marshal(clueSetDoc{Clues: set.Clues, Answer: set.Answer})
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO clue_sets (date, slot, data, updated_at) VALUES (?, ?, jsonb(?), ?)
		 ON CONFLICT(date, slot) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		set.Key.Date.String(), set.Key.Slot.String(), string(data), formatTime(c.now()),
	)
	if err != nil {
		return fmt.Errorf("saving clue set %s: %w", set.Key, err)
	}
	return nil
}

var _ cluegame.ClueProvider = (*Clues)(nil)
