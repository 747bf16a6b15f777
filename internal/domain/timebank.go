package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	DirectionEarned = "earned"
	DirectionSpent  = "spent"
)

// TimeBankEntry is one immutable line in a user's exchange history.
// Offering title and counterpart name are stored as plain strings so the
// entry survives the offering or the counterpart account being removed later.
// Entries are created exactly in pairs, once, at the moment a request settles.
type TimeBankEntry struct {
	EntryID         uuid.UUID
	UserID          uuid.UUID
	Direction       string
	OfferingTitle   string
	CounterpartName string
	Hours           float64
	OccurredAt      time.Time
}

// Signed returns the entry's contribution to the owner's balance.
func (e TimeBankEntry) Signed() float64 {
	if e.Direction == DirectionSpent {
		return -e.Hours
	}
	return e.Hours
}
