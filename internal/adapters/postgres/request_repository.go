package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/openhours/timebank/internal/domain"
	"github.com/openhours/timebank/internal/ports"
	"gorm.io/gorm"
)

type requestRepository struct {
	db *gorm.DB
}

func (r *requestRepository) Create(ctx context.Context, request domain.ServiceRequest) (domain.ServiceRequest, error) {
	rec := serviceRequestModel{
		OfferingID:  request.OfferingID,
		RequesterID: request.RequesterID,
		Status:      request.Status,
		CreatedAt:   request.CreatedAt,
		UpdatedAt:   request.UpdatedAt,
	}
	// The partial unique index on (offering_id, requester_id) for pending
	// rows rejects a second live request; settled ones do not block a retry.
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ServiceRequest{}, domain.ErrConflict
		}
		return domain.ServiceRequest{}, err
	}
	return toDomainRequest(rec), nil
}

func (r *requestRepository) GetByID(ctx context.Context, requestID uuid.UUID) (domain.ServiceRequest, error) {
	var rec serviceRequestModel
	if err := r.db.WithContext(ctx).Where("request_id = ?", requestID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ServiceRequest{}, domain.ErrNotFound
		}
		return domain.ServiceRequest{}, err
	}
	return toDomainRequest(rec), nil
}

type requestWithRequesterRow struct {
	serviceRequestModel
	RequesterName  string `gorm:"column:requester_name"`
	RequesterEmail string `gorm:"column:requester_email"`
}

func (r *requestRepository) ListByOffering(ctx context.Context, offeringID uuid.UUID) ([]domain.RequestWithRequester, error) {
	var rows []requestWithRequesterRow
	err := r.db.WithContext(ctx).
		Model(&serviceRequestModel{}).
		Select("service_requests.*, users.name AS requester_name, users.email AS requester_email").
		Joins("JOIN users ON users.user_id = service_requests.requester_id").
		Where("service_requests.offering_id = ?", offeringID).
		Order("service_requests.created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]domain.RequestWithRequester, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.RequestWithRequester{
			ServiceRequest: toDomainRequest(row.serviceRequestModel),
			RequesterName:  row.RequesterName,
			RequesterEmail: row.RequesterEmail,
		})
	}
	return result, nil
}

type requestWithOfferingRow struct {
	serviceRequestModel
	OffTitle         string    `gorm:"column:off_title"`
	OffCategory      string    `gorm:"column:off_category"`
	OffDescription   string    `gorm:"column:off_description"`
	OffDuration      float64   `gorm:"column:off_duration"`
	OffLocation      string    `gorm:"column:off_location"`
	OffStatus        string    `gorm:"column:off_status"`
	OffProviderID    uuid.UUID `gorm:"column:off_provider_id"`
	OffCreatedAt     time.Time `gorm:"column:off_created_at"`
	ProviderName     string    `gorm:"column:provider_name"`
}

func (r *requestRepository) ListOutgoing(ctx context.Context, requesterID uuid.UUID) ([]domain.RequestWithOffering, error) {
	var rows []requestWithOfferingRow
	err := r.db.WithContext(ctx).
		Model(&serviceRequestModel{}).
		Select(`service_requests.*,
			offerings.title AS off_title,
			offerings.category AS off_category,
			offerings.description AS off_description,
			offerings.duration_hours AS off_duration,
			offerings.location AS off_location,
			offerings.status AS off_status,
			offerings.provider_id AS off_provider_id,
			offerings.created_at AS off_created_at,
			users.name AS provider_name`).
		Joins("JOIN offerings ON offerings.offering_id = service_requests.offering_id").
		Joins("JOIN users ON users.user_id = offerings.provider_id").
		Where("service_requests.requester_id = ?", requesterID).
		Order("service_requests.created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]domain.RequestWithOffering, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.RequestWithOffering{
			ServiceRequest: toDomainRequest(row.serviceRequestModel),
			Offering: domain.Offering{
				OfferingID:    row.OfferingID,
				ProviderID:    row.OffProviderID,
				Title:         row.OffTitle,
				Category:      row.OffCategory,
				Description:   row.OffDescription,
				DurationHours: row.OffDuration,
				Location:      row.OffLocation,
				Status:        row.OffStatus,
				CreatedAt:     row.OffCreatedAt,
			},
			ProviderName: row.ProviderName,
		})
	}
	return result, nil
}

func (r *requestRepository) DeletePending(ctx context.Context, requestID, requesterID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Where("requester_id = ?", requesterID).
		Where("status = ?", domain.RequestStatusPending).
		Delete(&serviceRequestModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *requestRepository) Decline(ctx context.Context, requestID uuid.UUID, declinedAt time.Time) (domain.ServiceRequest, error) {
	var rec serviceRequestModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&serviceRequestModel{}).
			Where("request_id = ?", requestID).
			Where("status = ?", domain.RequestStatusPending).
			Updates(map[string]any{
				"status":     domain.RequestStatusDeclined,
				"updated_at": declinedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&serviceRequestModel{}).Where("request_id = ?", requestID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return domain.ErrNotFound
			}
			return domain.ErrConflict
		}
		return tx.Where("request_id = ?", requestID).Take(&rec).Error
	})
	if err != nil {
		return domain.ServiceRequest{}, err
	}
	return toDomainRequest(rec), nil
}

// SettleTx commits the whole acceptance as one transaction. The conditional
// status update is the serialization point: whichever concurrent approval
// loses it sees zero rows affected and the transaction rolls back with
// domain.ErrConflict before any ledger write.
func (r *requestRepository) SettleTx(ctx context.Context, params ports.SettlementTxParams, outboxEvent ports.OutboxEvent) (domain.ServiceRequest, error) {
	var rec serviceRequestModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&serviceRequestModel{}).
			Where("request_id = ?", params.RequestID).
			Where("status = ?", domain.RequestStatusPending).
			Updates(map[string]any{
				"status":     domain.RequestStatusAccepted,
				"updated_at": params.SettledAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&serviceRequestModel{}).Where("request_id = ?", params.RequestID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return domain.ErrNotFound
			}
			return domain.ErrConflict
		}

		if err := tx.Model(&userModel{}).
			Where("user_id = ?", params.ProviderID).
			Updates(map[string]any{
				"hours_earned": gorm.Expr("hours_earned + ?", params.Hours),
				"updated_at":   params.SettledAt,
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&userModel{}).
			Where("user_id = ?", params.RequesterID).
			Updates(map[string]any{
				"hours_spent": gorm.Expr("hours_spent + ?", params.Hours),
				"updated_at":  params.SettledAt,
			}).Error; err != nil {
			return err
		}

		entries := []timebankEntryModel{
			{
				UserID:          params.ProviderID,
				Direction:       domain.DirectionEarned,
				OfferingTitle:   params.OfferingTitle,
				CounterpartName: params.RequesterName,
				Hours:           params.Hours,
				OccurredAt:      params.SettledAt,
			},
			{
				UserID:          params.RequesterID,
				Direction:       domain.DirectionSpent,
				OfferingTitle:   params.OfferingTitle,
				CounterpartName: params.ProviderName,
				Hours:           params.Hours,
				OccurredAt:      params.SettledAt,
			},
		}
		if err := tx.Create(&entries).Error; err != nil {
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

		return tx.Where("request_id = ?", params.RequestID).Take(&rec).Error
	})
	if err != nil {
		return domain.ServiceRequest{}, err
	}
	return toDomainRequest(rec), nil
}
