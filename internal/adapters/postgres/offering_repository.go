package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/openhours/timebank/internal/domain"
	"github.com/openhours/timebank/internal/ports"
	"gorm.io/gorm"
)

type offeringRepository struct {
	db *gorm.DB
}

func (r *offeringRepository) Create(ctx context.Context, offering domain.Offering, outboxEvent ports.OutboxEvent) (domain.Offering, error) {
	var result domain.Offering
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := offeringModel{
			ProviderID:    offering.ProviderID,
			Title:         offering.Title,
			Category:      offering.Category,
			Description:   offering.Description,
			DurationHours: offering.DurationHours,
			Location:      offering.Location,
			Status:        offering.Status,
			CreatedAt:     offering.CreatedAt,
			UpdatedAt:     offering.UpdatedAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}

		outbox := outboxModel{
			OutboxID:     outboxEvent.EventID,
			EventType:    outboxEvent.EventType,
			PartitionKey: outboxEvent.PartitionKey,
			Payload:      string(outboxEvent.Payload),
			CreatedAt:    outboxEvent.OccurredAt,
			FirstSeenAt:  outboxEvent.OccurredAt,
		}
		if err := tx.Create(&outbox).Error; err != nil {
			return err
		}

		result = toDomainOffering(rec)
		return nil
	})
	if err != nil {
		return domain.Offering{}, err
	}
	return result, nil
}

func (r *offeringRepository) GetByID(ctx context.Context, offeringID uuid.UUID) (domain.Offering, error) {
	var rec offeringModel
	if err := r.db.WithContext(ctx).Where("offering_id = ?", offeringID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Offering{}, domain.ErrNotFound
		}
		return domain.Offering{}, err
	}
	return toDomainOffering(rec), nil
}

type offeringWithProviderRow struct {
	offeringModel
	ProviderName string `gorm:"column:provider_name"`
}

func (r *offeringRepository) ListOthers(ctx context.Context, excludeUserID uuid.UUID, limit, offset int) ([]domain.OfferingWithProvider, error) {
	var rows []offeringWithProviderRow
	err := r.db.WithContext(ctx).
		Model(&offeringModel{}).
		Select("offerings.*, users.name AS provider_name").
		Joins("JOIN users ON users.user_id = offerings.provider_id").
		Where("offerings.status = ?", domain.OfferingStatusActive).
		Where("offerings.provider_id <> ?", excludeUserID).
		Where("users.is_active = TRUE").
		Order("offerings.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]domain.OfferingWithProvider, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.OfferingWithProvider{
			Offering:     toDomainOffering(row.offeringModel),
			ProviderName: row.ProviderName,
		})
	}
	return result, nil
}

type offeringWithCountRow struct {
	offeringModel
	PendingRequests int `gorm:"column:pending_requests"`
}

func (r *offeringRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]domain.OfferingWithRequestCount, error) {
	var rows []offeringWithCountRow
	err := r.db.WithContext(ctx).
		Model(&offeringModel{}).
		Select(`offerings.*,
			(SELECT COUNT(*) FROM service_requests sr
			 WHERE sr.offering_id = offerings.offering_id
			   AND sr.status = ?) AS pending_requests`, domain.RequestStatusPending).
		Where("offerings.provider_id = ?", providerID).
		Where("offerings.status = ?", domain.OfferingStatusActive).
		Order("offerings.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]domain.OfferingWithRequestCount, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.OfferingWithRequestCount{
			Offering:        toDomainOffering(row.offeringModel),
			PendingRequests: row.PendingRequests,
		})
	}
	return result, nil
}
