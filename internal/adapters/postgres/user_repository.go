package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/openhours/timebank/internal/domain"
	"github.com/openhours/timebank/internal/ports"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) CreateWithOutboxTx(ctx context.Context, params ports.CreateUserTxParams, outboxEvent ports.OutboxEvent) (domain.User, error) {
	var result domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := userModel{
			Name:         params.Name,
			Email:        params.Email,
			PasswordHash: params.PasswordHash,
			Country:      params.Country,
			IsActive:     true,
			CreatedAt:    params.RegisteredAt,
			UpdatedAt:    params.RegisteredAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}

		payload := outboxEvent.Payload
		if len(payload) == 0 {
			payload = []byte(`{}`)
		}
		var payloadObj map[string]any
		if err := json.Unmarshal(payload, &payloadObj); err == nil {
			payloadObj["user_id"] = rec.UserID.String()
			if adjusted, mErr := json.Marshal(payloadObj); mErr == nil {
				payload = adjusted
			}
		}

		outbox := outboxModel{
			OutboxID:     outboxEvent.EventID,
			EventType:    outboxEvent.EventType,
			PartitionKey: rec.UserID.String(),
			Payload:      string(payload),
			CreatedAt:    outboxEvent.OccurredAt,
			FirstSeenAt:  outboxEvent.OccurredAt,
		}
		if err := tx.Create(&outbox).Error; err != nil {
			return err
		}

		result = toDomainUser(rec)
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return result, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

// DeactivateCascadeTx soft-deletes the account and scrubs its live catalog
// footprint in one transaction. History entries are left alone: the
// counterpart's ledger still references those exchanges.
func (r *userRepository) DeactivateCascadeTx(ctx context.Context, userID uuid.UUID, deactivatedAt time.Time, outboxEvent ports.OutboxEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userModel{}).
			Where("user_id = ?", userID).
			Where("is_active = TRUE").
			Updates(map[string]any{
				"is_active":  false,
				"deleted_at": deactivatedAt,
				"updated_at": deactivatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		if err := tx.Model(&offeringModel{}).
			Where("provider_id = ?", userID).
			Where("status = ?", domain.OfferingStatusActive).
			Updates(map[string]any{
				"status":     domain.OfferingStatusWithdrawn,
				"updated_at": deactivatedAt,
			}).Error; err != nil {
			return err
		}

		// Pending traffic in both directions dies with the account: the
		// user's own outgoing requests and the undecided requests parked on
		// their offerings.
		if err := tx.Where("requester_id = ?", userID).
			Where("status = ?", domain.RequestStatusPending).
			Delete(&serviceRequestModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("status = ?", domain.RequestStatusPending).
			Where("offering_id IN (?)", tx.Model(&offeringModel{}).
				Select("offering_id").
				Where("provider_id = ?", userID)).
			Delete(&serviceRequestModel{}).Error; err != nil {
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
		return tx.Create(&outbox).Error
	})
}
