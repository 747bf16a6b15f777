package application

import (
	"time"

	"github.com/google/uuid"
)

type Config struct {
	TokenTTL             time.Duration
	FailedLoginThreshold int
	LockoutDuration      time.Duration
	CatalogPageLimit     int
	HistoryPageLimit     int
	ChatHistoryLimit     int
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Country  string `json:"country"`
}

type RegisterResponse struct {
	UserID uuid.UUID `json:"user_id"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

type ProfileResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Country     string    `json:"country"`
	HoursEarned float64   `json:"hours_earned"`
	HoursSpent  float64   `json:"hours_spent"`
	Balance     float64   `json:"balance"`
}

type CreateOfferingRequest struct {
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	Location    string  `json:"location"`
}

type OfferingItem struct {
	OfferingID      uuid.UUID `json:"service_id"`
	ProviderID      uuid.UUID `json:"provider_id"`
	ProviderName    string    `json:"provider_name,omitempty"`
	Title           string    `json:"title"`
	Category        string    `json:"category"`
	Description     string    `json:"description"`
	Duration        float64   `json:"duration"`
	Location        string    `json:"location"`
	PendingRequests int       `json:"pending_requests,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type RequestItem struct {
	RequestID      uuid.UUID `json:"request_id"`
	OfferingID     uuid.UUID `json:"service_id"`
	RequesterID    uuid.UUID `json:"requester_id"`
	RequesterName  string    `json:"requester_name,omitempty"`
	RequesterEmail string    `json:"requester_email,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type OutgoingRequestItem struct {
	RequestID uuid.UUID    `json:"request_id"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	Offering  OfferingItem `json:"service"`
}

type DecisionRequest struct {
	Status string `json:"status"`
}

type HistoryQuery struct {
	Page  int
	Limit int
}

type HistoryItem struct {
	EntryID     uuid.UUID `json:"entry_id"`
	Direction   string    `json:"direction"`
	Service     string    `json:"service"`
	Counterpart string    `json:"counterpart"`
	Hours       float64   `json:"hours"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type ChatSendRequest struct {
	ReceiverID uuid.UUID `json:"receiver"`
	Content    string    `json:"content"`
}

type ChatMessageItem struct {
	MessageID  uuid.UUID `json:"message_id"`
	SenderID   uuid.UUID `json:"sender"`
	ReceiverID uuid.UUID `json:"receiver"`
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sent_at"`
}

type ConversationResponse struct {
	Messages          []ChatMessageItem `json:"messages"`
	CounterpartOnline bool              `json:"counterpart_online"`
}

// LedgerUpdatePayload is pushed over the relay after settlement so open
// clients can refresh their displayed balance without a manual reload.
type LedgerUpdatePayload struct {
	UserID      uuid.UUID `json:"user_id"`
	HoursEarned float64   `json:"hours_earned"`
	HoursSpent  float64   `json:"hours_spent"`
	Balance     float64   `json:"balance"`
}
