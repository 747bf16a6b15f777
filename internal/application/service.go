package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openhours/timebank/internal/domain"
	"github.com/openhours/timebank/internal/ports"
)

type Service struct {
	cfg         Config
	users       ports.UserRepository
	offerings   ports.OfferingRepository
	requests    ports.RequestRepository
	timebank    ports.TimeBankRepository
	chat        ports.ChatMessageRepository
	outbox      ports.OutboxRepository
	idempotency ports.IdempotencyRepository
	lockouts    ports.LockoutStore
	presence    ports.PresenceStore
	relay       ports.Relay
	hasher      ports.PasswordHasher
	tokenSigner ports.TokenSigner
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Users       ports.UserRepository
	Offerings   ports.OfferingRepository
	Requests    ports.RequestRepository
	TimeBank    ports.TimeBankRepository
	Chat        ports.ChatMessageRepository
	Outbox      ports.OutboxRepository
	Idempotency ports.IdempotencyRepository
	Lockouts    ports.LockoutStore
	Presence    ports.PresenceStore
	Relay       ports.Relay
	Hasher      ports.PasswordHasher
	TokenSigner ports.TokenSigner
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.CatalogPageLimit <= 0 {
		cfg.CatalogPageLimit = 50
	}
	if cfg.HistoryPageLimit <= 0 {
		cfg.HistoryPageLimit = 20
	}
	if cfg.ChatHistoryLimit <= 0 {
		cfg.ChatHistoryLimit = 200
	}
	return &Service{
		cfg:         cfg,
		users:       deps.Users,
		offerings:   deps.Offerings,
		requests:    deps.Requests,
		timebank:    deps.TimeBank,
		chat:        deps.Chat,
		outbox:      deps.Outbox,
		idempotency: deps.Idempotency,
		lockouts:    deps.Lockouts,
		presence:    deps.Presence,
		relay:       deps.Relay,
		hasher:      deps.Hasher,
		tokenSigner: deps.TokenSigner,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest, idempotencyKey string) (RegisterResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return RegisterResponse{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return RegisterResponse{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return RegisterResponse{}, err
	}

	if idempotencyKey != "" {
		requestHash := hashRequest(req)
		// A retry of the exact same request replays the recorded response;
		// the same key with a different body is a client bug.
		if rec, err := s.idempotency.Get(ctx, idempotencyKey); err == nil && rec != nil {
			if rec.RequestHash != requestHash || rec.Status != "COMPLETED" {
				return RegisterResponse{}, fmt.Errorf("%w: idempotency key already used", domain.ErrConflict)
			}
			var replay RegisterResponse
			if err := json.Unmarshal(rec.ResponseBody, &replay); err != nil {
				return RegisterResponse{}, fmt.Errorf("%w: idempotency key already used", domain.ErrConflict)
			}
			return replay, nil
		}
		if err := s.idempotency.Reserve(ctx, idempotencyKey, requestHash, s.nowFn().Add(7*24*time.Hour)); err != nil {
			return RegisterResponse{}, fmt.Errorf("%w: idempotency key already used", domain.ErrConflict)
		}
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"email":         email,
		"name":          name,
		"registered_at": now,
	})
	user, err := s.users.CreateWithOutboxTx(ctx, ports.CreateUserTxParams{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Country:      strings.TrimSpace(req.Country),
		RegisteredAt: now,
	}, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "user.registered",
		PartitionKey: email,
		Payload:      payload,
		OccurredAt:   now,
	})
	if err != nil {
		return RegisterResponse{}, err
	}

	if idempotencyKey != "" {
		responseBody, _ := json.Marshal(RegisterResponse{UserID: user.UserID})
		_ = s.idempotency.Complete(ctx, idempotencyKey, 201, responseBody, s.nowFn())
	}
	return RegisterResponse{UserID: user.UserID}, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return LoginResponse{}, err
	}

	lockKey := "login:" + email
	lockState, err := s.lockouts.Get(ctx, lockKey)
	if err == nil && lockState.LockedUntil != nil && lockState.LockedUntil.After(s.nowFn()) {
		return LoginResponse{}, domain.ErrAccountLocked
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return LoginResponse{}, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return LoginResponse{}, domain.ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		_, _ = s.lockouts.RecordFailure(ctx, lockKey, s.nowFn(), s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration)
		return LoginResponse{}, domain.ErrInvalidCredentials
	}
	_ = s.lockouts.Clear(ctx, lockKey)

	now := s.nowFn()
	token, err := s.tokenSigner.Sign(ports.AuthClaims{
		UserID:    user.UserID,
		Email:     user.Email,
		Name:      user.Name,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	})
	if err != nil {
		return LoginResponse{}, fmt.Errorf("sign token: %w", err)
	}
	return LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.cfg.TokenTTL.Seconds()),
	}, nil
}

// ValidateToken resolves a bearer token to its principal. Deactivated
// accounts are rejected even while their tokens are formally unexpired.
func (s *Service) ValidateToken(ctx context.Context, token string) (ports.AuthClaims, error) {
	claims, err := s.tokenSigner.ParseAndValidate(token)
	if err != nil {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	if !user.IsActive {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	return claims, nil
}

func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (ProfileResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ProfileResponse{}, err
	}
	return ProfileResponse{
		UserID:      user.UserID,
		Name:        user.Name,
		Email:       user.Email,
		Country:     user.Country,
		HoursEarned: user.HoursEarned,
		HoursSpent:  user.HoursSpent,
		Balance:     user.Balance(),
	}, nil
}

// DeleteAccount soft-deletes the caller and cascades: offerings are
// withdrawn from the catalog and pending outgoing requests removed, in one
// transaction. History entries stay; they are immutable facts and their
// denormalized names survive the deletion.
func (s *Service) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"user_id":    userID,
		"deleted_at": now,
	})
	return s.users.DeactivateCascadeTx(ctx, userID, now, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    "user.deleted",
		PartitionKey: userID.String(),
		Payload:      payload,
		OccurredAt:   now,
	})
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

func hashRequest(req any) string {
	raw, _ := json.Marshal(req)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
