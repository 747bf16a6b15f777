package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/openhours/timebank/internal/domain"
	"gorm.io/gorm"
)

type timebankRepository struct {
	db *gorm.DB
}

func (r *timebankRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.TimeBankEntry, error) {
	var rows []timebankEntryModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]domain.TimeBankEntry, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainEntry(row))
	}
	return result, nil
}
