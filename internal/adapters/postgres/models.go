package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	UserID       uuid.UUID  `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string     `gorm:"column:name"`
	Email        string     `gorm:"column:email"`
	PasswordHash string     `gorm:"column:password_hash"`
	Country      string     `gorm:"column:country"`
	HoursEarned  float64    `gorm:"column:hours_earned"`
	HoursSpent   float64    `gorm:"column:hours_spent"`
	IsActive     bool       `gorm:"column:is_active"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
	DeletedAt    *time.Time `gorm:"column:deleted_at"`
}

func (userModel) TableName() string { return "users" }

type offeringModel struct {
	OfferingID    uuid.UUID `gorm:"column:offering_id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderID    uuid.UUID `gorm:"column:provider_id"`
	Title         string    `gorm:"column:title"`
	Category      string    `gorm:"column:category"`
	Description   string    `gorm:"column:description"`
	DurationHours float64   `gorm:"column:duration_hours"`
	Location      string    `gorm:"column:location"`
	Status        string    `gorm:"column:status"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (offeringModel) TableName() string { return "offerings" }

type serviceRequestModel struct {
	RequestID   uuid.UUID `gorm:"column:request_id;type:uuid;default:gen_random_uuid();primaryKey"`
	OfferingID  uuid.UUID `gorm:"column:offering_id"`
	RequesterID uuid.UUID `gorm:"column:requester_id"`
	Status      string    `gorm:"column:status"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (serviceRequestModel) TableName() string { return "service_requests" }

type timebankEntryModel struct {
	EntryID         uuid.UUID `gorm:"column:entry_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID `gorm:"column:user_id"`
	Direction       string    `gorm:"column:direction"`
	OfferingTitle   string    `gorm:"column:offering_title"`
	CounterpartName string    `gorm:"column:counterpart_name"`
	Hours           float64   `gorm:"column:hours"`
	OccurredAt      time.Time `gorm:"column:occurred_at"`
}

func (timebankEntryModel) TableName() string { return "timebank_entries" }

type chatMessageModel struct {
	MessageID  uuid.UUID `gorm:"column:message_id;type:uuid;primaryKey"`
	SenderID   uuid.UUID `gorm:"column:sender_id"`
	ReceiverID uuid.UUID `gorm:"column:receiver_id"`
	Body       string    `gorm:"column:body"`
	SentAt     time.Time `gorm:"column:sent_at"`
}

func (chatMessageModel) TableName() string { return "chat_messages" }

type outboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	FirstSeenAt    time.Time  `gorm:"column:first_seen_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (outboxModel) TableName() string { return "timebank_outbox" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (idempotencyModel) TableName() string { return "timebank_idempotency" }
