package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	OfferingStatusActive    = "active"
	OfferingStatusWithdrawn = "withdrawn"
)

// Offering is a service posted by a provider, purchasable with time-credits.
// There is no denormalized requester list: who requested an offering is
// answered by querying service requests for its id.
type Offering struct {
	OfferingID    uuid.UUID
	ProviderID    uuid.UUID
	Title         string
	Category      string
	Description   string
	DurationHours float64
	Location      string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OfferingWithProvider is the catalog read model: an offering with the
// provider's display name resolved for rendering.
type OfferingWithProvider struct {
	Offering
	ProviderName string
}

// OfferingWithRequestCount is the provider-facing read model: an offering
// with its pending request count derived on read.
type OfferingWithRequestCount struct {
	Offering
	PendingRequests int
}
