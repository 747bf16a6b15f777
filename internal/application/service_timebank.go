package application

import (
	"context"

	"github.com/google/uuid"
)

// History returns the caller's exchange log, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, q HistoryQuery) ([]HistoryItem, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = s.cfg.HistoryPageLimit
	}
	offset := (q.Page - 1) * q.Limit

	entries, err := s.timebank.ListForUser(ctx, userID, q.Limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, HistoryItem{
			EntryID:     e.EntryID,
			Direction:   e.Direction,
			Service:     e.OfferingTitle,
			Counterpart: e.CounterpartName,
			Hours:       e.Hours,
			OccurredAt:  e.OccurredAt,
		})
	}
	return items, nil
}
