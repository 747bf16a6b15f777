package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/openhours/timebank/internal/ports"
)

type scriptedOutbox struct {
	mu        sync.Mutex
	claimable []ports.OutboxRecord
	published []uuid.UUID
	failed    []uuid.UUID
	dead      []uuid.UUID
}

func (s *scriptedOutbox) Enqueue(context.Context, ports.OutboxEvent) error { return nil }

func (s *scriptedOutbox) ClaimUnpublished(_ context.Context, limit int, _ string, _ time.Time) ([]ports.OutboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.claimable) {
		limit = len(s.claimable)
	}
	batch := s.claimable[:limit]
	s.claimable = s.claimable[limit:]
	return batch, nil
}

func (s *scriptedOutbox) MarkPublished(_ context.Context, outboxID uuid.UUID, _ string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, outboxID)
	return nil
}

func (s *scriptedOutbox) MarkFailed(_ context.Context, outboxID uuid.UUID, _, _ string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, outboxID)
	return nil
}

func (s *scriptedOutbox) MarkDeadLettered(_ context.Context, outboxID uuid.UUID, _, _ string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = append(s.dead, outboxID)
	return nil
}

type scriptedPublisher struct {
	mu        sync.Mutex
	failTypes map[string]bool
	delivered []string
}

func (p *scriptedPublisher) Publish(_ context.Context, eventType string, _ []byte, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failTypes[eventType] {
		return errors.New("broker unavailable")
	}
	p.delivered = append(p.delivered, eventType)
	return nil
}

func outboxRecord(eventType string, retries int) ports.OutboxRecord {
	now := time.Now().UTC()
	return ports.OutboxRecord{
		OutboxID:     uuid.New(),
		EventType:    eventType,
		PartitionKey: "key-1",
		Payload:      []byte(`{"ok":true}`),
		RetryCount:   retries,
		CreatedAt:    now,
		FirstSeenAt:  now,
	}
}

func TestOutboxWorkerPublishRetryAndDeadLetter(t *testing.T) {
	t.Parallel()

	fresh := outboxRecord("user.registered", 0)
	retrying := outboxRecord("offering.created", 0)
	lastChance := outboxRecord("request.settled", 2)
	exhausted := outboxRecord("user.deleted", 3)

	outbox := &scriptedOutbox{claimable: []ports.OutboxRecord{fresh, retrying, lastChance, exhausted}}
	publisher := &scriptedPublisher{failTypes: map[string]bool{
		"offering.created": true,
		"request.settled":  true,
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	worker := NewOutboxWorker(logger, outbox, publisher, time.Second, 10, 30*time.Second, 3)

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("process once failed: %v", err)
	}

	if len(outbox.published) != 1 || outbox.published[0] != fresh.OutboxID {
		t.Fatalf("published = %v, want only the fresh record", outbox.published)
	}
	if len(outbox.failed) != 1 || outbox.failed[0] != retrying.OutboxID {
		t.Fatalf("failed = %v, want a retry for the first failure", outbox.failed)
	}
	// lastChance crosses the retry threshold on this failure; exhausted was
	// already over it and must not be republished.
	if len(outbox.dead) != 2 {
		t.Fatalf("dead lettered = %v, want lastChance and exhausted", outbox.dead)
	}
	for _, delivered := range publisher.delivered {
		if delivered == "user.deleted" {
			t.Fatalf("exhausted record should not reach the broker")
		}
	}
}

func TestOutboxWorkerEmptyBatchIsQuiet(t *testing.T) {
	t.Parallel()

	outbox := &scriptedOutbox{}
	publisher := &scriptedPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	worker := NewOutboxWorker(logger, outbox, publisher, time.Second, 10, 30*time.Second, 3)

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("process once failed: %v", err)
	}
	if len(outbox.published)+len(outbox.failed)+len(outbox.dead) != 0 {
		t.Fatalf("no transitions expected on an empty batch")
	}
}
