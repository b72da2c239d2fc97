package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playperu/cluegame/internal/cluegame"
)

// Participants is the registry of names allowed to play. Lookups ignore case.
type Participants struct {
	db  *sql.DB
	now func() time.Time
}

func (p *Participants) Check(ctx context.Context, name string) (bool, error) {
	var found string
	err := p.db.QueryRowContext(ctx,
		`SELECT name FROM participants WHERE name = ?`, strings.TrimSpace(name),
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking participant: %w", err)
	}
	return true, nil
}

// Add registers name. Adding an existing name is a no-op.
func (p *Participants) Add(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: participant name is required", cluegame.ErrInvalidInput)
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO participants (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, formatTime(p.now()),
	)
	if err != nil {
		return fmt.Errorf("adding participant: %w", err)
	}
	return nil
}

func (p *Participants) Remove(ctx context.Context, name string) error {
	result, err := p.db.ExecContext(ctx,
		`DELETE FROM participants WHERE name = ?`, strings.TrimSpace(name),
	)
	if err != nil {
		return fmt.Errorf("removing participant: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Participants) List(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT name FROM participants ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

var _ cluegame.ParticipantValidator = (*Participants)(nil)
