package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openhours/timebank/internal/domain"
)

// CreateUserTxParams captures atomic registration inputs.
// Registration writes the user row and its outbox event in one transaction.
type CreateUserTxParams struct {
	Name         string
	Email        string
	PasswordHash string
	Country      string
	RegisteredAt time.Time
}

// UserRepository defines persistence operations for marketplace identities.
// Ledger accumulators on the user row are touched only by the settlement
// transaction in RequestRepository, never through this interface.
type UserRepository interface {
	CreateWithOutboxTx(ctx context.Context, params CreateUserTxParams, outboxEvent OutboxEvent) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	// DeactivateCascadeTx soft-deletes the user, withdraws their offerings
	// and removes their pending outgoing requests, atomically.
	DeactivateCascadeTx(ctx context.Context, userID uuid.UUID, deactivatedAt time.Time, outboxEvent OutboxEvent) error
}

// OfferingRepository manages the service catalog.
type OfferingRepository interface {
	Create(ctx context.Context, offering domain.Offering, outboxEvent OutboxEvent) (domain.Offering, error)
	GetByID(ctx context.Context, offeringID uuid.UUID) (domain.Offering, error)
	// ListOthers returns active offerings not owned by the caller, provider
	// name resolved, newest first.
	ListOthers(ctx context.Context, excludeUserID uuid.UUID, limit, offset int) ([]domain.OfferingWithProvider, error)
	// ListByProvider returns the caller's offerings with pending request
	// counts derived by query.
	ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]domain.OfferingWithRequestCount, error)
}

// SettlementTxParams carries everything the settlement transaction needs so
// it can run without further reads. Names and title are denormalized into the
// history entries at this point.
type SettlementTxParams struct {
	RequestID     uuid.UUID
	OfferingID    uuid.UUID
	ProviderID    uuid.UUID
	RequesterID   uuid.UUID
	OfferingTitle string
	ProviderName  string
	RequesterName string
	Hours         float64
	SettledAt     time.Time
}

// RequestRepository owns the service-request lifecycle, including the
// settlement transaction triggered by acceptance.
type RequestRepository interface {
	// Create inserts a pending request; a live pending duplicate for the
	// same (offering, requester) pair yields domain.ErrConflict.
	Create(ctx context.Context, request domain.ServiceRequest) (domain.ServiceRequest, error)
	GetByID(ctx context.Context, requestID uuid.UUID) (domain.ServiceRequest, error)
	ListByOffering(ctx context.Context, offeringID uuid.UUID) ([]domain.RequestWithRequester, error)
	ListOutgoing(ctx context.Context, requesterID uuid.UUID) ([]domain.RequestWithOffering, error)
	// DeletePending removes a pending request owned by requesterID.
	// Missing, foreign and already-settled requests are indistinguishable to
	// the caller: all yield domain.ErrNotFound.
	DeletePending(ctx context.Context, requestID, requesterID uuid.UUID) error
	// Decline transitions pending -> declined. A request no longer pending
	// yields domain.ErrConflict.
	Decline(ctx context.Context, requestID uuid.UUID, declinedAt time.Time) (domain.ServiceRequest, error)
	// SettleTx performs the accept settlement as one transaction: the
	// pending -> accepted conditional update, both ledger increments as
	// single-statement atomic adds, the earned/spent history pair and the
	// outbox event. A lost conditional update yields domain.ErrConflict and
	// nothing is written.
	SettleTx(ctx context.Context, params SettlementTxParams, outboxEvent OutboxEvent) (domain.ServiceRequest, error)
}

// TimeBankRepository reads the append-only exchange history. Writes happen
// only inside the settlement transaction.
type TimeBankRepository interface {
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.TimeBankEntry, error)
}

// ChatMessageRepository persists direct messages for history reads.
type ChatMessageRepository interface {
	Append(ctx context.Context, message domain.ChatMessage) error
	// ListConversation returns messages between two users, oldest first.
	ListConversation(ctx context.Context, userA, userB uuid.UUID, limit int) ([]domain.ChatMessage, error)
}

// OutboxEvent is the write-side event payload prior to storage.
// It is adapter-neutral to keep application code independent of broker specifics.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	FirstSeenAt    time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls the publish-retry workflow for domain events.
// This explicit contract enables the transactional outbox pattern without
// leaking DB details.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}

// IdempotencyRecord tracks a previously accepted mutating request.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	Status       string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdempotencyRepository enforces idempotent mutation semantics where a
// client opts in with an Idempotency-Key header.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}
