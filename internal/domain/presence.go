package domain

import "time"

// PresenceState is the derived inside/outside status of a person. It is
// never stored; it is always recomputed from the access event log.
type PresenceState string

const (
	StateInside  PresenceState = "inside"
	StateOutside PresenceState = "outside"
)

// EventKind distinguishes the two kinds of crossing events.
type EventKind string

const (
	EventEntry EventKind = "entry"
	EventExit  EventKind = "exit"
)

// AccessEvent is one append-only crossing record.
type AccessEvent struct {
	ID       int64     `json:"id"`
	PersonID int64     `json:"person_id"`
	Kind     EventKind `json:"kind"`
	Ts       time.Time `json:"ts"`
	Building string    `json:"building"`
	Creator  string    `json:"creator"`
}

// IsInside decides presence from the latest entry and exit timestamps.
// A person with no entries is outside. A person with entries and no exit is
// inside. Equal timestamps resolve to outside: the strict comparison is a
// conservative default so a duplicate-timestamp race never double-admits.
func IsInside(lastEntry, lastExit *time.Time) bool {
	if lastEntry == nil {
		return false
	}
	if lastExit == nil {
		return true
	}
	return lastEntry.After(*lastExit)
}

// StateOf is IsInside expressed as a PresenceState.
func StateOf(lastEntry, lastExit *time.Time) PresenceState {
	if IsInside(lastEntry, lastExit) {
		return StateInside
	}
	return StateOutside
}
