package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusDeclined = "declined"
)

// ServiceRequest is a requester's claim against an offering, subject to
// provider approval. Status only ever moves out of pending: to accepted or
// declined via the provider, or to deletion via requester cancellation.
// At most one pending request may exist per (offering, requester) pair.
type ServiceRequest struct {
	RequestID   uuid.UUID
	OfferingID  uuid.UUID
	RequesterID uuid.UUID
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsSettable reports whether a provider decision may still be applied.
func (r ServiceRequest) IsSettable() bool {
	return r.Status == RequestStatusPending
}

// ValidDecision reports whether status is an allowed provider decision.
func ValidDecision(status string) bool {
	return status == RequestStatusAccepted || status == RequestStatusDeclined
}

// RequestWithRequester is the provider read model: a request with the
// requester identity resolved.
type RequestWithRequester struct {
	ServiceRequest
	RequesterName  string
	RequesterEmail string
}

// RequestWithOffering is the requester read model: an outgoing request with
// its offering populated.
type RequestWithOffering struct {
	ServiceRequest
	Offering     Offering
	ProviderName string
}
