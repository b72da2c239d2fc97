package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/playperu/cluegame/internal/cluegame"
)

// Attempt is one ledger row as stored.
type Attempt struct {
	ID         string                 `json:"id"`
	Record     cluegame.AttemptRecord `json:"record"`
	RecordedAt time.Time              `json:"recordedAt"`
}

// Ledger is the append-only attempt log. A record is identified by
// participant, date, slot and attempt number, so redelivery is harmless.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Record stores rec and reports whether it was new.
func (l *Ledger) Record(ctx context.Context, rec cluegame.AttemptRecord) (bool, error) {
	if strings.TrimSpace(rec.Participant) == "" || rec.AttemptNumber < 1 || rec.ElapsedSeconds < 0 {
		return false, fmt.Errorf("%w: incomplete attempt record", cluegame.ErrInvalidInput)
	}
	if rec.Status != cluegame.StatusWin && rec.Status != cluegame.StatusLoss {
		return false, fmt.Errorf("%w: unknown status %q", cluegame.ErrInvalidInput, rec.Status)
	}

	var completed any
	if rec.CompletedDate != nil {
		completed = rec.CompletedDate.String()
	}
	result, err := l.db.ExecContext(ctx,
		`INSERT INTO attempts (id, participant, date, slot, attempt_number, status, elapsed_seconds, attempted_at, completed_date, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(participant, date, slot, attempt_number) DO NOTHING`,
		newID(), strings.TrimSpace(rec.Participant), rec.Key.Date.String(), rec.Key.Slot.String(),
		rec.AttemptNumber, string(rec.Status), rec.ElapsedSeconds,
		rec.AttemptedAt.UTC().Format(time.RFC3339Nano), completed, formatTime(l.now()),
	)
	if err != nil {
		return false, fmt.Errorf("recording attempt: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// Report implements cluegame.AttemptReporter. Duplicates are acknowledged.
func (l *Ledger) Report(ctx context.Context, rec cluegame.AttemptRecord) error {
	_, err := l.Record(ctx, rec)
	return err
}

// List returns raw attempts newest first. A zero key lists every attempt.
func (l *Ledger) List(ctx context.Context, key cluegame.Key) ([]Attempt, error) {
	query := `SELECT id, participant, date, slot, attempt_number, status, elapsed_seconds, attempted_at, completed_date, recorded_at
		FROM attempts`
	var args []any
	if !key.Date.IsZero() {
		query += ` WHERE date = ? AND slot = ?`
		args = append(args, key.Date.String(), key.Slot.String())
	}
	query += ` ORDER BY recorded_at DESC, attempt_number DESC`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing attempts: %w", err)
	}
	defer rows.Close()

	attempts := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func scanAttempt(rows *sql.Rows) (Attempt, error) {
	var (
		a                       Attempt
		date, slot, status      string
		attemptedAt, recordedAt string
		completed               sql.NullString
	)
	err := rows.Scan(&a.ID, &a.Record.Participant, &date, &slot, &a.Record.AttemptNumber,
		&status, &a.Record.ElapsedSeconds, &attemptedAt, &completed, &recordedAt)
	if err != nil {
		return Attempt{}, err
	}

	if a.Record.Key.Date, err = cluegame.ParseDate(date); err != nil {
		return Attempt{}, err
	}
	if a.Record.Key.Slot, err = cluegame.ParseSlot(slot); err != nil {
		return Attempt{}, err
	}
	a.Record.Status = cluegame.Status(status)
	if a.Record.AttemptedAt, err = time.Parse(time.RFC3339Nano, attemptedAt); err != nil {
		return Attempt{}, fmt.Errorf("parsing attempted_at: %w", err)
	}
	if a.RecordedAt, err = time.Parse(timeLayout, recordedAt); err != nil {
		return Attempt{}, fmt.Errorf("parsing recorded_at: %w", err)
	}
	if completed.Valid {
		d, err := cluegame.ParseDate(completed.String)
		if err != nil {
			return Attempt{}, err
		}
		a.Record.CompletedDate = &d
	}
	return a, nil
}

var _ cluegame.AttemptReporter = (*Ledger)(nil)
