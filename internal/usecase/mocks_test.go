// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/model"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/ports/adapter"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// ---- plan catalog ----

type memPlanRepo struct {
	mu      sync.RWMutex
	store   map[model.PlanName]*model.PlanDefinition
	findErr error
	// failFindAfter makes FindByName succeed that many times and then fail
	// with findErr on every later call.
	failFindAfter int
	findCalls     int
}

func newMemPlanRepo(defs ...*model.PlanDefinition) *memPlanRepo {
	m := &memPlanRepo{store: make(map[model.PlanName]*model.PlanDefinition)}
	for _, d := range defs {
		m.store[d.Name] = d
	}
	return m
}

func (m *memPlanRepo) FindByName(ctx context.Context, tx repository.Tx, name model.PlanName) (*model.PlanDefinition, error) {
	m.mu.Lock()
	m.findCalls++
	calls := m.findCalls
	m.mu.Unlock()
	if m.findErr != nil && (m.failFindAfter == 0 || calls > m.failFindAfter) {
		return nil, m.findErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.store[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.PlanDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.PlanDefinition, 0, len(m.store))
	for _, d := range m.store {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

// ---- subscription state ----

// memSubscriptionRepo mirrors the conditional-write semantics of the real
// repository, including the four bulk expiration passes.
type memSubscriptionRepo struct {
	mu    sync.Mutex
	store map[string]*model.SubscriptionState
	// plan coins used by the yearly refresh pass
	planCoins map[model.PlanName]int64

	saveErr    error
	refreshErr error // injected into RefreshYearlyDue
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{
		store:     make(map[string]*model.SubscriptionState),
		planCoins: make(map[model.PlanName]int64),
	}
}

func (m *memSubscriptionRepo) seed(s *model.SubscriptionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.UID] = &cp
}

func (m *memSubscriptionRepo) get(uid string) *model.SubscriptionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.store[uid]
	return &cp
}

func (m *memSubscriptionRepo) Find(ctx context.Context, tx repository.Tx, uid string) (*model.SubscriptionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[uid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubscriptionRepo) SavePlanState(ctx context.Context, tx repository.Tx, s *model.SubscriptionState) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[s.UID]; !ok {
		return domain.ErrNotFound
	}
	cp := *s
	m.store[s.UID] = &cp
	return nil
}

func (m *memSubscriptionRepo) AddCoinsIfActive(ctx context.Context, tx repository.Tx, uid string, coins int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[uid]
	if !ok || !s.Active {
		return false, nil
	}
	s.CoinBalance += coins
	return true, nil
}

func clearEntitlement(s *model.SubscriptionState) {
	s.Active = false
	s.Plan = nil
	s.CoinBalance = 0
	s.PlanExpiryAt = nil
	s.CoinsExpiryAt = nil
	s.NextCoinRefreshAt = nil
}

func (m *memSubscriptionRepo) ExpireMonthlyDue(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.store {
		if s.Active && s.Plan != nil && (*s.Plan == model.PlanMonthly || *s.Plan == model.PlanTester) &&
			s.PlanExpiryAt != nil && !s.PlanExpiryAt.After(now) {
			clearEntitlement(s)
			n++
		}
	}
	return n, nil
}

func (m *memSubscriptionRepo) RefreshYearlyDue(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	if m.refreshErr != nil {
		return 0, m.refreshErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.store {
		if s.Active && s.Plan != nil && *s.Plan == model.PlanYearly &&
			s.NextCoinRefreshAt != nil && !s.NextCoinRefreshAt.After(now) &&
			s.PlanExpiryAt != nil && s.PlanExpiryAt.After(now) {
			s.CoinBalance = m.planCoins[model.PlanYearly]
			next := now.Add(30 * 24 * time.Hour)
			coinsExpiry := next
			s.CoinsExpiryAt = &coinsExpiry
			s.NextCoinRefreshAt = &next
			n++
		}
	}
	return n, nil
}

func (m *memSubscriptionRepo) ExpireYearlyDue(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.store {
		if s.Active && s.Plan != nil && *s.Plan == model.PlanYearly &&
			s.PlanExpiryAt != nil && !s.PlanExpiryAt.After(now) {
			clearEntitlement(s)
			n++
		}
	}
	return n, nil
}

func (m *memSubscriptionRepo) CleanupExpiredAddonCoins(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.store {
		if !s.Active && s.CoinsExpiryAt != nil && !s.CoinsExpiryAt.After(now) {
			s.CoinBalance = 0
			s.CoinsExpiryAt = nil
			n++
		}
	}
	return n, nil
}

// ---- order ledger ----

type memOrderRepo struct {
	mu        sync.Mutex
	orders    []*model.Order
	insertErr error
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{}
}

func (m *memOrderRepo) Insert(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders = append(m.orders, &cp)
	return nil
}

func (m *memOrderRepo) all() []*model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Order, len(m.orders))
	copy(out, m.orders)
	return out
}

// ---- purchase metadata ----

type memMetadataRepo struct {
	mu    sync.Mutex
	store map[string]*model.PurchaseMetadata

	insertErr     error
	transitionErr error
}

func newMemMetadataRepo() *memMetadataRepo {
	return &memMetadataRepo{store: make(map[string]*model.PurchaseMetadata)}
}

func (m *memMetadataRepo) Insert(ctx context.Context, tx repository.Tx, rec *model.PurchaseMetadata) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[rec.PaymentIntentID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *rec
	m.store[rec.PaymentIntentID] = &cp
	return nil
}

func (m *memMetadataRepo) FindLive(ctx context.Context, tx repository.Tx, intentID string, now time.Time) (*model.PurchaseMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.store[intentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !rec.ExpiresAt.After(now) {
		if rec.Status == model.MetadataStatusPending || rec.Status == model.MetadataStatusProcessing {
			rec.Status = model.MetadataStatusExpired
		}
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memMetadataRepo) TransitionStatus(ctx context.Context, tx repository.Tx, intentID string, from, to model.MetadataStatus) (bool, error) {
	if m.transitionErr != nil {
		return false, m.transitionErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.store[intentID]
	if !ok || rec.Status != from {
		return false, nil
	}
	rec.Status = to
	return true, nil
}

func (m *memMetadataRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PurchaseMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PurchaseMetadata
	for _, rec := range m.store {
		if rec.Status == model.MetadataStatusPending && rec.CreatedAt.Before(olderThan) && rec.ExpiresAt.After(time.Now()) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memMetadataRepo) status(intentID string) model.MetadataStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.store[intentID]
	if !ok {
		return ""
	}
	return rec.Status
}

// ---- gateway ----

type mockGateway struct {
	mu      sync.Mutex
	intents map[string]*adapter.PaymentIntent

	createErr error
	getErr    error
	getCalls  int
}

func newMockGateway() *mockGateway {
	return &mockGateway{intents: make(map[string]*adapter.PaymentIntent)}
}

func (g *mockGateway) Name() string { return "mock" }

func (g *mockGateway) put(pi *adapter.PaymentIntent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := *pi
	g.intents[pi.ID] = &cp
}

func (g *mockGateway) CreatePaymentIntent(ctx context.Context, p adapter.CreateIntentParams) (*adapter.PaymentIntent, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	pi := &adapter.PaymentIntent{
		ID:       "int_" + p.MerchantOrderID,
		Status:   model.IntentStatusPending,
		Amount:   p.Amount,
		Currency: p.Currency,
	}
	g.intents[pi.ID] = pi
	cp := *pi
	return &cp, nil
}

func (g *mockGateway) GetPaymentIntent(ctx context.Context, intentID string) (*adapter.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getCalls++
	if g.getErr != nil {
		return nil, g.getErr
	}
	pi, ok := g.intents[intentID]
	if !ok {
		return nil, domain.NewGatewayError(404, "payment intent not found", "")
	}
	cp := *pi
	return &cp, nil
}

func (g *mockGateway) ConfirmPaymentIntent(ctx context.Context, intentID string, data map[string]any) (*adapter.PaymentIntent, error) {
	return g.GetPaymentIntent(ctx, intentID)
}

func (g *mockGateway) CancelPaymentIntent(ctx context.Context, intentID, reason string) (*adapter.PaymentIntent, error) {
	g.mu.Lock()
	if pi, ok := g.intents[intentID]; ok {
		pi.Status = model.IntentStatusCancelled
	}
	g.mu.Unlock()
	return g.GetPaymentIntent(ctx, intentID)
}

// ---- catalog refresher ----

type mockRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *mockRefresher) Invalidate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}
