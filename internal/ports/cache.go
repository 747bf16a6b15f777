package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LockoutState is the current lockout envelope for a login key.
// It is cache-backed to avoid hot writes on every failed login.
type LockoutState struct {
	FailedCount int
	LockedUntil *time.Time
}

// LockoutStore handles short-lived brute-force protection state.
type LockoutStore interface {
	Get(ctx context.Context, key string) (LockoutState, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (LockoutState, error)
	Clear(ctx context.Context, key string) error
}

// PresenceStore tracks which users hold live relay sessions. Markers carry a
// TTL and are refreshed by the hub so a crashed instance cannot leave users
// online forever.
type PresenceStore interface {
	MarkOnline(ctx context.Context, userID uuid.UUID, sessionID string, ttl time.Duration) error
	MarkOffline(ctx context.Context, userID uuid.UUID, sessionID string) error
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
}
