package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/openhours/timebank/internal/domain"
	"github.com/openhours/timebank/internal/ports"
)

// RequestOffering files a pending claim against an offering. A withdrawn
// offering is indistinguishable from a missing one, and providers cannot
// request their own services.
func (s *Service) RequestOffering(ctx context.Context, requesterID, offeringID uuid.UUID) (RequestItem, error) {
	offering, err := s.offerings.GetByID(ctx, offeringID)
	if err != nil {
		return RequestItem{}, err
	}
	if offering.Status != domain.OfferingStatusActive {
		return RequestItem{}, domain.ErrNotFound
	}
	if offering.ProviderID == requesterID {
		return RequestItem{}, fmt.Errorf("%w: cannot request your own service", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	created, err := s.requests.Create(ctx, domain.ServiceRequest{
		OfferingID:  offeringID,
		RequesterID: requesterID,
		Status:      domain.RequestStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return RequestItem{}, err
	}
	return toRequestItem(created, "", ""), nil
}

// ListOfferingRequests returns every request filed against one of the
// caller's offerings. Only the offering's provider may see them.
func (s *Service) ListOfferingRequests(ctx context.Context, callerID, offeringID uuid.UUID) ([]RequestItem, error) {
	offering, err := s.offerings.GetByID(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	if offering.ProviderID != callerID {
		return nil, domain.ErrForbidden
	}

	rows, err := s.requests.ListByOffering(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	items := make([]RequestItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toRequestItem(row.ServiceRequest, row.RequesterName, row.RequesterEmail))
	}
	return items, nil
}

// ListOutgoingRequests returns every request the caller has made, each with
// its offering populated, regardless of status.
func (s *Service) ListOutgoingRequests(ctx context.Context, requesterID uuid.UUID) ([]OutgoingRequestItem, error) {
	rows, err := s.requests.ListOutgoing(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	items := make([]OutgoingRequestItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, OutgoingRequestItem{
			RequestID: row.RequestID,
			Status:    row.Status,
			CreatedAt: row.CreatedAt,
			Offering:  toOfferingItem(row.Offering, row.ProviderName, 0),
		})
	}
	return items, nil
}

// CancelRequest withdraws the caller's still-pending request. A request that
// is missing, owned by someone else, or already decided reads as not found;
// the distinction is deliberately not leaked.
func (s *Service) CancelRequest(ctx context.Context, requesterID, requestID uuid.UUID) error {
	return s.requests.DeletePending(ctx, requestID, requesterID)
}

// DecideRequest applies the provider's decision to a pending request.
//
// Decline is a bare terminal status write. Accept settles the exchange: the
// pending -> accepted transition, both ledger increments and the paired
// history entries commit as a single transaction, so a crash can never leave
// a half-settled ledger and a concurrent second approval loses the
// conditional update and gets ErrConflict instead of double-crediting.
func (s *Service) DecideRequest(ctx context.Context, callerID, requestID uuid.UUID, decision string) (RequestItem, error) {
	if !domain.ValidDecision(decision) {
		return RequestItem{}, fmt.Errorf("%w: status must be %q or %q", domain.ErrInvalidInput,
			domain.RequestStatusAccepted, domain.RequestStatusDeclined)
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return RequestItem{}, err
	}
	offering, err := s.offerings.GetByID(ctx, request.OfferingID)
	if err != nil {
		return RequestItem{}, err
	}
	if offering.ProviderID != callerID {
		return RequestItem{}, domain.ErrForbidden
	}

	now := s.nowFn()
	if decision == domain.RequestStatusDeclined {
		updated, err := s.requests.Decline(ctx, requestID, now)
		if err != nil {
			return RequestItem{}, err
		}
		return toRequestItem(updated, "", ""), nil
	}

	provider, err := s.users.GetByID(ctx, offering.ProviderID)
	if err != nil {
		return RequestItem{}, err
	}
	requester, err := s.users.GetByID(ctx, request.RequesterID)
	if err != nil {
		return RequestItem{}, err
	}

	payload, _ := json.Marshal(map[string]any{
		"request_id":   requestID,
		"service_id":   offering.OfferingID,
		"provider_id":  provider.UserID,
		"requester_id": requester.UserID,
		"hours":        offering.DurationHours,
		"settled_at":   now,
	})
	updated, err := s.requests.SettleTx(ctx, ports.SettlementTxParams{
		RequestID:     requestID,
		OfferingID:    offering.OfferingID,
		ProviderID:    provider.UserID,
		RequesterID:   requester.UserID,
		OfferingTitle: offering.Title,
		ProviderName:  provider.Name,
		RequesterName: requester.Name,
		Hours:         offering.DurationHours,
		SettledAt:     now,
	}, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "request.settled",
		PartitionKey: requestID.String(),
		Payload:      payload,
		OccurredAt:   now,
	})
	if err != nil {
		return RequestItem{}, err
	}

	s.notifyLedgerUpdated(ctx, provider.UserID)
	s.notifyLedgerUpdated(ctx, requester.UserID)
	return toRequestItem(updated, requester.Name, requester.Email), nil
}

// notifyLedgerUpdated pushes the post-settlement balance at the user's open
// sessions. Best effort: a failed read just means the client refreshes on its
// next request.
func (s *Service) notifyLedgerUpdated(ctx context.Context, userID uuid.UUID) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return
	}
	s.relay.EmitToUser(userID, ports.RelayEventLedgerUpdated, LedgerUpdatePayload{
		UserID:      user.UserID,
		HoursEarned: user.HoursEarned,
		HoursSpent:  user.HoursSpent,
		Balance:     user.Balance(),
	})
}

func toRequestItem(r domain.ServiceRequest, requesterName, requesterEmail string) RequestItem {
	return RequestItem{
		RequestID:      r.RequestID,
		OfferingID:     r.OfferingID,
		RequesterID:    r.RequesterID,
		RequesterName:  requesterName,
		RequesterEmail: requesterEmail,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
	}
}
