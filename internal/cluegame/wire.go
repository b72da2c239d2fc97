package cluegame

import (
	"fmt"
	"time"
)

// PayloadVersion is the schema version of AttemptPayload.
const PayloadVersion = 1

// AttemptPayload is the canonical wire form of an AttemptRecord, shared by
// the HTTP and message-bus transports.
type AttemptPayload struct {
	Version         int     `json:"version"`
	Name            string  `json:"name" validate:"required"`
	Seconds         int     `json:"seconds" validate:"min=0"`
	Status          Status  `json:"status" validate:"oneof=WIN LOSS"`
	Attempts        int     `json:"attempts" validate:"min=1"`
	AttemptDateTime string  `json:"attemptDateTime" validate:"required"`
	CompletedDate   *string `json:"completedDate"`
	Date            string  `json:"date" validate:"required"`
	Slot            string  `json:"slot" validate:"required,oneof=morning evening"`
}

func (r AttemptRecord) Payload() AttemptPayload {
	p := AttemptPayload{
		Version:         PayloadVersion,
		Name:            r.Participant,
		Seconds:         r.ElapsedSeconds,
		Status:          r.Status,
		Attempts:        r.AttemptNumber,
		AttemptDateTime: r.AttemptedAt.UTC().Format(time.RFC3339Nano),
		Date:            r.Key.Date.String(),
		Slot:            r.Key.Slot.String(),
	}
	if r.CompletedDate != nil {
		d := r.CompletedDate.String()
		p.CompletedDate = &d
	}
	return p
}

// Record parses p back into an AttemptRecord. Payloads without a version are
// treated as version 1.
func (p AttemptPayload) Record() (AttemptRecord, error) {
	if p.Version > PayloadVersion {
		return AttemptRecord{}, fmt.Errorf("%w: unsupported payload version %d", ErrInvalidInput, p.Version)
	}
	at, err := time.Parse(time.RFC3339Nano, p.AttemptDateTime)
	if err != nil {
		return AttemptRecord{}, fmt.Errorf("%w: attemptDateTime: %w", ErrInvalidInput, err)
	}
	date, err := ParseDate(p.Date)
	if err != nil {
		return AttemptRecord{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	slot, err := ParseSlot(p.Slot)
	if err != nil {
		return AttemptRecord{}, err
	}
	rec := AttemptRecord{
		Participant:    p.Name,
		Key:            Key{Date: date, Slot: slot},
		ElapsedSeconds: p.Seconds,
		Status:         p.Status,
		AttemptNumber:  p.Attempts,
		AttemptedAt:    at,
	}
	if p.CompletedDate != nil && *p.CompletedDate != "" {
		d, err := ParseDate(*p.CompletedDate)
		if err != nil {
			return AttemptRecord{}, fmt.Errorf("%w: completedDate: %w", ErrInvalidInput, err)
		}
		rec.CompletedDate = &d
	}
	return rec, nil
}
