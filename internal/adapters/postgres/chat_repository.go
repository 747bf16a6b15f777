package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/openhours/timebank/internal/domain"
	"gorm.io/gorm"
)

type chatMessageRepository struct {
	db *gorm.DB
}

func (r *chatMessageRepository) Append(ctx context.Context, message domain.ChatMessage) error {
	rec := chatMessageModel{
		MessageID:  message.MessageID,
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
		Body:       message.Body,
		SentAt:     message.SentAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *chatMessageRepository) ListConversation(ctx context.Context, userA, userB uuid.UUID, limit int) ([]domain.ChatMessage, error) {
	// Fetch the newest window, then reverse so callers read oldest first.
	var rows []chatMessageModel
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		Order("sent_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]domain.ChatMessage, len(rows))
	for i, row := range rows {
		result[len(rows)-1-i] = toDomainChatMessage(row)
	}
	return result, nil
}
