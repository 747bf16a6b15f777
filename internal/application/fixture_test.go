package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/openhours/timebank/internal/application"
	"github.com/openhours/timebank/internal/domain"
	"github.com/openhours/timebank/internal/ports"
)

type fixture struct {
	service   *application.Service
	users     *fakeUsers
	offerings *fakeOfferings
	requests  *fakeRequests
	timebank  *fakeTimebank
	chat      *fakeChat
	presence  *fakePresence
	relay     *relayRecorder
	idem      *fakeIdempotency
	lockouts  *fakeLockouts
}

func defaultTestConfig() application.Config {
	return application.Config{
		TokenTTL:             24 * time.Hour,
		FailedLoginThreshold: 3,
		LockoutDuration:      30 * time.Minute,
		CatalogPageLimit:     50,
		HistoryPageLimit:     20,
		ChatHistoryLimit:     200,
	}
}

func newFixture() *fixture {
	return newFixtureWithConfig(defaultTestConfig())
}

func newFixtureWithConfig(cfg application.Config) *fixture {
	users := &fakeUsers{
		byEmail: make(map[string]domain.User),
		byID:    make(map[uuid.UUID]domain.User),
	}
	timebank := &fakeTimebank{}
	offerings := &fakeOfferings{
		items: make(map[uuid.UUID]domain.Offering),
		users: users,
	}
	requests := &fakeRequests{
		items:     make(map[uuid.UUID]domain.ServiceRequest),
		users:     users,
		offerings: offerings,
		timebank:  timebank,
	}
	offerings.requests = requests
	users.offerings = offerings
	users.requests = requests
	chat := &fakeChat{}
	presence := &fakePresence{online: make(map[uuid.UUID]map[string]struct{})}
	relay := &relayRecorder{}
	idem := &fakeIdempotency{records: map[string]ports.IdempotencyRecord{}}
	lockouts := &fakeLockouts{state: map[string]ports.LockoutState{}}

	svc := application.NewService(application.Dependencies{
		Config:      cfg,
		Users:       users,
		Offerings:   offerings,
		Requests:    requests,
		TimeBank:    timebank,
		Chat:        chat,
		Outbox:      &fakeOutbox{},
		Idempotency: idem,
		Lockouts:    lockouts,
		Presence:    presence,
		Relay:       relay,
		Hasher:      &fakeHasher{},
		TokenSigner: &fakeSigner{tokens: map[string]ports.AuthClaims{}},
	})

	return &fixture{
		service:   svc,
		users:     users,
		offerings: offerings,
		requests:  requests,
		timebank:  timebank,
		chat:      chat,
		presence:  presence,
		relay:     relay,
		idem:      idem,
		lockouts:  lockouts,
	}
}

func (f *fixture) register(t *testing.T, name, email string) uuid.UUID {
	t.Helper()
	res, err := f.service.Register(context.Background(), application.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: "SecurePass123!",
		Country:  "NL",
	}, "")
	if err != nil {
		t.Fatalf("register %s failed: %v", email, err)
	}
	return res.UserID
}

func (f *fixture) createOffering(t *testing.T, providerID uuid.UUID, title string, hours float64) application.OfferingItem {
	t.Helper()
	item, err := f.service.CreateOffering(context.Background(), providerID, application.CreateOfferingRequest{
		Title:    title,
		Category: "tutoring",
		Duration: hours,
		Location: "Amsterdam",
	})
	if err != nil {
		t.Fatalf("create offering %q failed: %v", title, err)
	}
	return item
}

type fakeUsers struct {
	mu        sync.Mutex
	byEmail   map[string]domain.User
	byID      map[uuid.UUID]domain.User
	events    []ports.OutboxEvent
	offerings *fakeOfferings
	requests  *fakeRequests
}

func (f *fakeUsers) CreateWithOutboxTx(_ context.Context, params ports.CreateUserTxParams, outboxEvent ports.OutboxEvent) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[params.Email]; ok {
		return domain.User{}, domain.ErrConflict
	}
	u := domain.User{
		UserID:       uuid.New(),
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Country:      params.Country,
		IsActive:     true,
		CreatedAt:    params.RegisteredAt,
		UpdatedAt:    params.RegisteredAt,
	}
	f.byEmail[u.Email] = u
	f.byID[u.UserID] = u
	f.events = append(f.events, outboxEvent)
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) DeactivateCascadeTx(_ context.Context, userID uuid.UUID, deactivatedAt time.Time, outboxEvent ports.OutboxEvent) error {
	f.mu.Lock()
	u, ok := f.byID[userID]
	if !ok || !u.IsActive {
		f.mu.Unlock()
		return domain.ErrNotFound
	}
	u.IsActive = false
	u.DeletedAt = &deactivatedAt
	u.UpdatedAt = deactivatedAt
	f.byID[userID] = u
	f.byEmail[u.Email] = u
	f.events = append(f.events, outboxEvent)
	f.mu.Unlock()

	f.offerings.withdrawAllFor(userID, deactivatedAt)
	f.requests.dropPendingInvolving(userID)
	return nil
}

func (f *fakeUsers) apply(userID uuid.UUID, fn func(*domain.User)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return
	}
	fn(&u)
	f.byID[userID] = u
	f.byEmail[u.Email] = u
}

type fakeOfferings struct {
	mu       sync.Mutex
	items    map[uuid.UUID]domain.Offering
	order    []uuid.UUID
	events   []ports.OutboxEvent
	users    *fakeUsers
	requests *fakeRequests
}

func (f *fakeOfferings) Create(_ context.Context, offering domain.Offering, outboxEvent ports.OutboxEvent) (domain.Offering, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	offering.OfferingID = uuid.New()
	f.items[offering.OfferingID] = offering
	f.order = append(f.order, offering.OfferingID)
	f.events = append(f.events, outboxEvent)
	return offering, nil
}

func (f *fakeOfferings) GetByID(_ context.Context, offeringID uuid.UUID) (domain.Offering, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.items[offeringID]
	if !ok {
		return domain.Offering{}, domain.ErrNotFound
	}
	return o, nil
}

func (f *fakeOfferings) ListOthers(ctx context.Context, excludeUserID uuid.UUID, limit, offset int) ([]domain.OfferingWithProvider, error) {
	f.mu.Lock()
	visible := make([]domain.Offering, 0)
	for i := len(f.order) - 1; i >= 0; i-- {
		o := f.items[f.order[i]]
		if o.ProviderID != excludeUserID && o.Status == domain.OfferingStatusActive {
			visible = append(visible, o)
		}
	}
	f.mu.Unlock()

	out := make([]domain.OfferingWithProvider, 0, len(visible))
	for _, o := range visible {
		provider, err := f.users.GetByID(ctx, o.ProviderID)
		if err != nil || !provider.IsActive {
			continue
		}
		out = append(out, domain.OfferingWithProvider{Offering: o, ProviderName: provider.Name})
	}
	return page(out, limit, offset), nil
}

func (f *fakeOfferings) ListByProvider(_ context.Context, providerID uuid.UUID, limit, offset int) ([]domain.OfferingWithRequestCount, error) {
	f.mu.Lock()
	mine := make([]domain.Offering, 0)
	for i := len(f.order) - 1; i >= 0; i-- {
		o := f.items[f.order[i]]
		if o.ProviderID == providerID && o.Status == domain.OfferingStatusActive {
			mine = append(mine, o)
		}
	}
	f.mu.Unlock()

	out := make([]domain.OfferingWithRequestCount, 0, len(mine))
	for _, o := range mine {
		out = append(out, domain.OfferingWithRequestCount{
			Offering:        o,
			PendingRequests: f.requests.countPending(o.OfferingID),
		})
	}
	return page(out, limit, offset), nil
}

func (f *fakeOfferings) withdraw(offeringID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.items[offeringID]
	o.Status = domain.OfferingStatusWithdrawn
	f.items[offeringID] = o
}

func (f *fakeOfferings) withdrawAllFor(providerID uuid.UUID, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, o := range f.items {
		if o.ProviderID == providerID && o.Status == domain.OfferingStatusActive {
			o.Status = domain.OfferingStatusWithdrawn
			o.UpdatedAt = at
			f.items[id] = o
		}
	}
}

func (f *fakeOfferings) ownerOf(offeringID uuid.UUID) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[offeringID].ProviderID
}

type fakeRequests struct {
	mu        sync.Mutex
	items     map[uuid.UUID]domain.ServiceRequest
	order     []uuid.UUID
	events    []ports.OutboxEvent
	users     *fakeUsers
	offerings *fakeOfferings
	timebank  *fakeTimebank
}

func (f *fakeRequests) Create(_ context.Context, request domain.ServiceRequest) (domain.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.OfferingID == request.OfferingID &&
			existing.RequesterID == request.RequesterID &&
			existing.Status == domain.RequestStatusPending {
			return domain.ServiceRequest{}, domain.ErrConflict
		}
	}
	request.RequestID = uuid.New()
	f.items[request.RequestID] = request
	f.order = append(f.order, request.RequestID)
	return request, nil
}

func (f *fakeRequests) GetByID(_ context.Context, requestID uuid.UUID) (domain.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[requestID]
	if !ok {
		return domain.ServiceRequest{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeRequests) ListByOffering(ctx context.Context, offeringID uuid.UUID) ([]domain.RequestWithRequester, error) {
	f.mu.Lock()
	matched := make([]domain.ServiceRequest, 0)
	for i := len(f.order) - 1; i >= 0; i-- {
		if r, ok := f.items[f.order[i]]; ok && r.OfferingID == offeringID {
			matched = append(matched, r)
		}
	}
	f.mu.Unlock()

	out := make([]domain.RequestWithRequester, 0, len(matched))
	for _, r := range matched {
		requester, err := f.users.GetByID(ctx, r.RequesterID)
		if err != nil {
			continue
		}
		out = append(out, domain.RequestWithRequester{
			ServiceRequest: r,
			RequesterName:  requester.Name,
			RequesterEmail: requester.Email,
		})
	}
	return out, nil
}

func (f *fakeRequests) ListOutgoing(ctx context.Context, requesterID uuid.UUID) ([]domain.RequestWithOffering, error) {
	f.mu.Lock()
	matched := make([]domain.ServiceRequest, 0)
	for i := len(f.order) - 1; i >= 0; i-- {
		if r, ok := f.items[f.order[i]]; ok && r.RequesterID == requesterID {
			matched = append(matched, r)
		}
	}
	f.mu.Unlock()

	out := make([]domain.RequestWithOffering, 0, len(matched))
	for _, r := range matched {
		offering, err := f.offerings.GetByID(ctx, r.OfferingID)
		if err != nil {
			continue
		}
		provider, _ := f.users.GetByID(ctx, offering.ProviderID)
		out = append(out, domain.RequestWithOffering{
			ServiceRequest: r,
			Offering:       offering,
			ProviderName:   provider.Name,
		})
	}
	return out, nil
}

func (f *fakeRequests) DeletePending(_ context.Context, requestID, requesterID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[requestID]
	if !ok || r.RequesterID != requesterID || r.Status != domain.RequestStatusPending {
		return domain.ErrNotFound
	}
	delete(f.items, requestID)
	return nil
}

func (f *fakeRequests) Decline(_ context.Context, requestID uuid.UUID, declinedAt time.Time) (domain.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[requestID]
	if !ok {
		return domain.ServiceRequest{}, domain.ErrNotFound
	}
	if r.Status != domain.RequestStatusPending {
		return domain.ServiceRequest{}, domain.ErrConflict
	}
	r.Status = domain.RequestStatusDeclined
	r.UpdatedAt = declinedAt
	f.items[requestID] = r
	return r, nil
}

func (f *fakeRequests) SettleTx(_ context.Context, params ports.SettlementTxParams, outboxEvent ports.OutboxEvent) (domain.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[params.RequestID]
	if !ok {
		return domain.ServiceRequest{}, domain.ErrNotFound
	}
	if r.Status != domain.RequestStatusPending {
		return domain.ServiceRequest{}, domain.ErrConflict
	}
	r.Status = domain.RequestStatusAccepted
	r.UpdatedAt = params.SettledAt
	f.items[params.RequestID] = r

	f.users.apply(params.ProviderID, func(u *domain.User) { u.HoursEarned += params.Hours })
	f.users.apply(params.RequesterID, func(u *domain.User) { u.HoursSpent += params.Hours })
	f.timebank.append(domain.TimeBankEntry{
		UserID:          params.ProviderID,
		Direction:       domain.DirectionEarned,
		OfferingTitle:   params.OfferingTitle,
		CounterpartName: params.RequesterName,
		Hours:           params.Hours,
		OccurredAt:      params.SettledAt,
	})
	f.timebank.append(domain.TimeBankEntry{
		UserID:          params.RequesterID,
		Direction:       domain.DirectionSpent,
		OfferingTitle:   params.OfferingTitle,
		CounterpartName: params.ProviderName,
		Hours:           params.Hours,
		OccurredAt:      params.SettledAt,
	})
	f.events = append(f.events, outboxEvent)
	return r, nil
}

func (f *fakeRequests) countPending(offeringID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, r := range f.items {
		if r.OfferingID == offeringID && r.Status == domain.RequestStatusPending {
			count++
		}
	}
	return count
}

func (f *fakeRequests) dropPendingInvolving(userID uuid.UUID) {
	f.mu.Lock()
	incoming := make(map[uuid.UUID]uuid.UUID)
	for id, r := range f.items {
		if r.Status != domain.RequestStatusPending {
			continue
		}
		if r.RequesterID == userID {
			delete(f.items, id)
			continue
		}
		incoming[id] = r.OfferingID
	}
	f.mu.Unlock()

	doomed := make([]uuid.UUID, 0)
	for id, offeringID := range incoming {
		if f.offerings.ownerOf(offeringID) == userID {
			doomed = append(doomed, id)
		}
	}

	f.mu.Lock()
	for _, id := range doomed {
		if r, ok := f.items[id]; ok && r.Status == domain.RequestStatusPending {
			delete(f.items, id)
		}
	}
	f.mu.Unlock()
}

type fakeTimebank struct {
	mu      sync.Mutex
	entries []domain.TimeBankEntry
}

func (f *fakeTimebank) append(entry domain.TimeBankEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.EntryID = uuid.New()
	f.entries = append(f.entries, entry)
}

func (f *fakeTimebank) ListForUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]domain.TimeBankEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.TimeBankEntry, 0)
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].UserID == userID {
			out = append(out, f.entries[i])
		}
	}
	return page(out, limit, offset), nil
}

func (f *fakeTimebank) entriesFor(userID uuid.UUID) []domain.TimeBankEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.TimeBankEntry, 0)
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

type fakeChat struct {
	mu       sync.Mutex
	messages []domain.ChatMessage
}

func (f *fakeChat) Append(_ context.Context, message domain.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeChat) ListConversation(_ context.Context, userA, userB uuid.UUID, limit int) ([]domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ChatMessage, 0)
	for _, m := range f.messages {
		if (m.SenderID == userA && m.ReceiverID == userB) || (m.SenderID == userB && m.ReceiverID == userA) {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakePresence struct {
	mu     sync.Mutex
	online map[uuid.UUID]map[string]struct{}
}

func (f *fakePresence) MarkOnline(_ context.Context, userID uuid.UUID, sessionID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.online[userID]
	if !ok {
		set = make(map[string]struct{})
		f.online[userID] = set
	}
	set[sessionID] = struct{}{}
	return nil
}

func (f *fakePresence) MarkOffline(_ context.Context, userID uuid.UUID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if set, ok := f.online[userID]; ok {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(f.online, userID)
		}
	}
	return nil
}

func (f *fakePresence) IsOnline(_ context.Context, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.online[userID]) > 0, nil
}

type relayEvent struct {
	UserID  uuid.UUID
	Event   string
	Payload any
}

type relayRecorder struct {
	mu         sync.Mutex
	broadcasts []relayEvent
	emits      []relayEvent
}

func (r *relayRecorder) Broadcast(event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, relayEvent{Event: event, Payload: payload})
}

func (r *relayRecorder) EmitToUser(userID uuid.UUID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emits = append(r.emits, relayEvent{UserID: userID, Event: event, Payload: payload})
}

func (r *relayRecorder) emitsFor(userID uuid.UUID, event string) []relayEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]relayEvent, 0)
	for _, e := range r.emits {
		if e.UserID == userID && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []ports.OutboxEvent
}

func (f *fakeOutbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}
func (f *fakeOutbox) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}
func (f *fakeOutbox) MarkPublished(context.Context, uuid.UUID, string, time.Time) error { return nil }
func (f *fakeOutbox) MarkFailed(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}
func (f *fakeOutbox) MarkDeadLettered(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

type fakeIdempotency struct {
	mu      sync.Mutex
	records map[string]ports.IdempotencyRecord
}

func (f *fakeIdempotency) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.records[key]
	if !ok {
		return nil, nil
	}
	cp := v
	return &cp, nil
}

func (f *fakeIdempotency) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[key]; ok {
		return domain.ErrConflict
	}
	f.records[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      "PENDING",
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	return nil
}

func (f *fakeIdempotency) Complete(_ context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.records[key]
	v.Status = "COMPLETED"
	v.ResponseCode = responseCode
	v.ResponseBody = responseBody
	v.UpdatedAt = at
	f.records[key] = v
	return nil
}

type fakeLockouts struct {
	mu    sync.Mutex
	state map[string]ports.LockoutState
}

func (f *fakeLockouts) Get(_ context.Context, key string) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[key], nil
}

func (f *fakeLockouts) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.state[key]
	st.FailedCount++
	if st.FailedCount >= threshold {
		lockUntil := now.Add(lockoutWindow)
		st.LockedUntil = &lockUntil
	}
	f.state[key] = st
	return st, nil
}

func (f *fakeLockouts) Clear(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.state, key)
	return nil
}

type fakeHasher struct{}

func (f *fakeHasher) Hash(password string) (string, error) { return "hash:" + password, nil }

func (f *fakeHasher) Compare(hash, password string) error {
	if hash != "hash:"+password {
		return errors.New("hash mismatch")
	}
	return nil
}

type fakeSigner struct {
	mu     sync.Mutex
	tokens map[string]ports.AuthClaims
}

func (f *fakeSigner) Sign(claims ports.AuthClaims) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := uuid.NewString()
	f.tokens[token] = claims
	return token, nil
}

func (f *fakeSigner) ParseAndValidate(token string) (ports.AuthClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.tokens[token]
	if !ok {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	return claims, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
