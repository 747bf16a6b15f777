package postgres

import (
	"errors"

	"github.com/openhours/timebank/internal/domain"
	"gorm.io/gorm"
)

func toDomainUser(row userModel) domain.User {
	return domain.User{
		UserID:       row.UserID,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Country:      row.Country,
		HoursEarned:  row.HoursEarned,
		HoursSpent:   row.HoursSpent,
		IsActive:     row.IsActive,
		DeletedAt:    row.DeletedAt,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func toDomainOffering(row offeringModel) domain.Offering {
	return domain.Offering{
		OfferingID:    row.OfferingID,
		ProviderID:    row.ProviderID,
		Title:         row.Title,
		Category:      row.Category,
		Description:   row.Description,
		DurationHours: row.DurationHours,
		Location:      row.Location,
		Status:        row.Status,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func toDomainRequest(row serviceRequestModel) domain.ServiceRequest {
	return domain.ServiceRequest{
		RequestID:   row.RequestID,
		OfferingID:  row.OfferingID,
		RequesterID: row.RequesterID,
		Status:      row.Status,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func toDomainEntry(row timebankEntryModel) domain.TimeBankEntry {
	return domain.TimeBankEntry{
		EntryID:         row.EntryID,
		UserID:          row.UserID,
		Direction:       row.Direction,
		OfferingTitle:   row.OfferingTitle,
		CounterpartName: row.CounterpartName,
		Hours:           row.Hours,
		OccurredAt:      row.OccurredAt,
	}
}

func toDomainChatMessage(row chatMessageModel) domain.ChatMessage {
	return domain.ChatMessage{
		MessageID:  row.MessageID,
		SenderID:   row.SenderID,
		ReceiverID: row.ReceiverID,
		Body:       row.Body,
		SentAt:     row.SentAt,
	}
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
