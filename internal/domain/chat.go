package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a persisted direct message between two users. Delivery to
// live sessions is best effort through the relay; history reads come from
// this record.
type ChatMessage struct {
	MessageID  uuid.UUID
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Body       string
	SentAt     time.Time
}
