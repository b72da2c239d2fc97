package cluegame

import "time"

// eveningHour is the local hour at which the evening slot begins.
const eveningHour = 12

// Resolve maps now to the live clue key in a zone offset minutes east of UTC.
func Resolve(now time.Time, offsetMinutes int) Key {
	local := now.In(time.FixedZone("", offsetMinutes*60))
	slot := Morning
	if local.Hour() >= eveningHour {
		slot = Evening
	}
	return Key{Date: DateOf(local), Slot: slot}
}

// Resolver carries the configured reference offset.
type Resolver struct {
	OffsetMinutes int
}

func (r Resolver) Resolve(now time.Time) Key {
	return Resolve(now, r.OffsetMinutes)
}

// Today is the reference-zone calendar date of now.
func (r Resolver) Today(now time.Time) Date {
	return r.Resolve(now).Date
}
