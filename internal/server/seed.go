package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/playperu/cluegame/internal/cluegame"
	"github.com/playperu/cluegame/internal/store"
)

// SeedFile is the layout of a seed file: participants plus clue sets.
type SeedFile struct {
	Participants []string         `json:"participants" validate:"dive,required,max=64"`
	ClueSets     []ClueSetRequest `json:"clueSets" validate:"dive"`
}

// Seed loads participants and clue sets from the JSON file at path.
// Idempotent: existing participants are kept and clue sets that already
// exist are not overwritten.
func Seed(ctx context.Context, logger *slog.Logger, path string, clues ClueStore, participants *store.Participants) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}
	var seed SeedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parsing seed file: %w", err)
	}
	if err := validate.Struct(seed); err != nil {
		return fmt.Errorf("seed file: %s", validationMessage(err))
	}

	for _, name := range seed.Participants {
		if err := participants.Add(ctx, name); err != nil {
			return fmt.Errorf("seeding participant %q: %w", name, err)
		}
	}

	created := 0
	for _, req := range seed.ClueSets {
		date, err := cluegame.ParseDate(req.Date)
		if err != nil {
			return err
		}
		slot, err := cluegame.ParseSlot(req.Slot)
		if err != nil {
			return err
		}
		key := cluegame.Key{Date: date, Slot: slot}

		_, err = clues.Fetch(ctx, key)
		if err == nil {
			continue
		}
		if !errors.Is(err, cluegame.ErrNotFound) {
			return fmt.Errorf("checking clue set %s: %w", key, err)
		}
		if err := clues.Save(ctx, cluegame.ClueSet{Key: key, Clues: req.Clues, Answer: req.Answer}); err != nil {
			return fmt.Errorf("seeding clue set %s: %w", key, err)
		}
		created++
	}

	logger.Info("seed loaded", "participants", len(seed.Participants), "clue_sets", created)
	return nil
}
