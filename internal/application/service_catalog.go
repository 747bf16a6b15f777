package application

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/openhours/timebank/internal/domain"
	"github.com/openhours/timebank/internal/ports"
)

// CreateOffering posts a new service to the catalog and announces it to all
// connected clients.
func (s *Service) CreateOffering(ctx context.Context, providerID uuid.UUID, req CreateOfferingRequest) (OfferingItem, error) {
	if err := domain.ValidateOffering(req.Title, req.Duration); err != nil {
		return OfferingItem{}, err
	}

	provider, err := s.users.GetByID(ctx, providerID)
	if err != nil {
		return OfferingItem{}, err
	}

	now := s.nowFn()
	offering := domain.Offering{
		ProviderID:    providerID,
		Title:         strings.TrimSpace(req.Title),
		Category:      strings.TrimSpace(req.Category),
		Description:   req.Description,
		DurationHours: req.Duration,
		Location:      strings.TrimSpace(req.Location),
		Status:        domain.OfferingStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	payload, _ := json.Marshal(map[string]any{
		"provider_id": providerID,
		"title":       offering.Title,
		"category":    offering.Category,
		"duration":    offering.DurationHours,
		"created_at":  now,
	})
	created, err := s.offerings.Create(ctx, offering, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "offering.created",
		PartitionKey: providerID.String(),
		Payload:      payload,
		OccurredAt:   now,
	})
	if err != nil {
		return OfferingItem{}, err
	}

	item := toOfferingItem(created, provider.Name, 0)
	s.relay.Broadcast(ports.RelayEventNewService, item)
	return item, nil
}

// ListOtherOfferings returns the catalog as seen by a browsing user: every
// active offering they do not own, provider name resolved.
func (s *Service) ListOtherOfferings(ctx context.Context, callerID uuid.UUID) ([]OfferingItem, error) {
	rows, err := s.offerings.ListOthers(ctx, callerID, s.cfg.CatalogPageLimit, 0)
	if err != nil {
		return nil, err
	}
	items := make([]OfferingItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toOfferingItem(row.Offering, row.ProviderName, 0))
	}
	return items, nil
}

// ListMyOfferings returns the caller's own offerings with pending request
// counts. The provider name is left blank: the caller already knows it.
func (s *Service) ListMyOfferings(ctx context.Context, callerID uuid.UUID) ([]OfferingItem, error) {
	rows, err := s.offerings.ListByProvider(ctx, callerID, s.cfg.CatalogPageLimit, 0)
	if err != nil {
		return nil, err
	}
	items := make([]OfferingItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toOfferingItem(row.Offering, "", row.PendingRequests))
	}
	return items, nil
}

func toOfferingItem(o domain.Offering, providerName string, pending int) OfferingItem {
	return OfferingItem{
		OfferingID:      o.OfferingID,
		ProviderID:      o.ProviderID,
		ProviderName:    providerName,
		Title:           o.Title,
		Category:        o.Category,
		Description:     o.Description,
		Duration:        o.DurationHours,
		Location:        o.Location,
		PendingRequests: pending,
		CreatedAt:       o.CreatedAt,
	}
}
