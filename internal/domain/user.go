package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the marketplace identity plus its time-credit accumulators.
// HoursEarned and HoursSpent only ever grow, and only through settlement;
// the balance is always derived, never stored.
type User struct {
	UserID       uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Country      string
	HoursEarned  float64
	HoursSpent   float64
	IsActive     bool
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Balance is the spendable time-credit: hours earned minus hours spent.
func (u User) Balance() float64 {
	return u.HoursEarned - u.HoursSpent
}
