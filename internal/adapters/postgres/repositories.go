package postgres

import (
	"github.com/openhours/timebank/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Users       ports.UserRepository
	Offerings   ports.OfferingRepository
	Requests    ports.RequestRepository
	TimeBank    ports.TimeBankRepository
	Chat        ports.ChatMessageRepository
	Outbox      ports.OutboxRepository
	Idempotency ports.IdempotencyRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:       &userRepository{db: db},
		Offerings:   &offeringRepository{db: db},
		Requests:    &requestRepository{db: db},
		TimeBank:    &timebankRepository{db: db},
		Chat:        &chatMessageRepository{db: db},
		Outbox:      &outboxRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
	}
}
