//go:build !integration

package web

import (
	"context"
	"sync"
	"time"

	"elearn-entitlements/internal/domain"
	"elearn-entitlements/internal/domain/model"
	"elearn-entitlements/internal/domain/ports/repository"
	"elearn-entitlements/internal/infra/i18n"
	"elearn-entitlements/internal/usecase"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// --- Mock Repositories (Ports) ---

type mockTxManager struct{}

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

type mockCodeRepo struct {
	repository.CodeRepository // Embed interface for forward compatibility
	mu                        sync.Mutex
	byID                      map[string]*model.Code
}

func newMockCodeRepo() *mockCodeRepo {
	return &mockCodeRepo{byID: map[string]*model.Code{}}
}

func (m *mockCodeRepo) Save(ctx context.Context, tx repository.Tx, code *model.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.byID {
		if id != code.ID && c.Value == code.Value {
			return domain.ErrAlreadyExists
		}
	}
	cp := *code
	m.byID[code.ID] = &cp
	return nil
}

func (m *mockCodeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCodeRepo) FindByValue(ctx context.Context, tx repository.Tx, value string) (*model.Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.Value == value {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCodeRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *mockCodeRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Code
	for _, c := range m.byID {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

type mockRedemptionRepo struct {
	repository.RedemptionRepository
	mu   sync.Mutex
	rows []*model.Redemption
}

func (m *mockRedemptionRepo) Insert(ctx context.Context, tx repository.Tx, r *model.Redemption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.CodeID == r.CodeID && (row.SingleUse || row.AccountID == r.AccountID) {
			return domain.ErrConcurrentConflict
		}
	}
	cp := *r
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *mockRedemptionRepo) CountByCode(ctx context.Context, tx repository.Tx, codeID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, row := range m.rows {
		if row.CodeID == codeID {
			n++
		}
	}
	return n, nil
}

func (m *mockRedemptionRepo) FindByCodeAndAccount(ctx context.Context, tx repository.Tx, codeID, accountID string) (*model.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.CodeID == codeID && row.AccountID == accountID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockRedemptionRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Redemption
	for _, row := range m.rows {
		if row.AccountID == accountID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRedemptionRepo) ListAccountsByCode(ctx context.Context, tx repository.Tx, codeID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, row := range m.rows {
		if row.CodeID == codeID && !seen[row.AccountID] {
			seen[row.AccountID] = true
			out = append(out, row.AccountID)
		}
	}
	return out, nil
}

type mockAccountRepo struct {
	repository.AccountRepository
	mu   sync.Mutex
	byID map[string]*model.Account
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{byID: map[string]*model.Account{}}
}

func (m *mockAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *mockAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAccountRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockAccountRepo) DeleteCascade(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type mockPlanRepo struct {
	repository.SubscriptionPlanRepository
	mu   sync.Mutex
	byID map[string]*model.SubscriptionPlan
}

func newMockPlanRepo() *mockPlanRepo {
	return &mockPlanRepo{byID: map[string]*model.SubscriptionPlan{}}
}

func (m *mockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *mockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPlanRepo) List(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.SubscriptionPlan
	for _, p := range m.byID {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

type mockPurchaseRepo struct {
	repository.PurchaseRepository
	mu   sync.Mutex
	rows []*model.Purchase
}

func (m *mockPurchaseRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.AccountID == p.AccountID && row.PlanID == p.PlanID {
			cp := *p
			m.rows[i] = &cp
			return nil
		}
	}
	cp := *p
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *mockPurchaseRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Purchase
	for _, row := range m.rows {
		if row.AccountID == accountID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockEntitlementRepo struct {
	repository.EntitlementRepository
	mu        sync.Mutex
	byAccount map[string]*model.Entitlement
}

func newMockEntitlementRepo() *mockEntitlementRepo {
	return &mockEntitlementRepo{byAccount: map[string]*model.Entitlement{}}
}

func (m *mockEntitlementRepo) Save(ctx context.Context, tx repository.Tx, e *model.Entitlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.byAccount[e.AccountID] = &cp
	return nil
}

func (m *mockEntitlementRepo) FindByAccount(ctx context.Context, tx repository.Tx, accountID string) (*model.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byAccount[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockEntitlementRepo) ListExpiredActive(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]string, error) {
	return nil, nil
}

func (m *mockEntitlementRepo) Delete(ctx context.Context, tx repository.Tx, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byAccount, accountID)
	return nil
}

type mockEntitlementCache struct {
	mu        sync.Mutex
	snapshots map[string]*model.Entitlement
}

func newMockEntitlementCache() *mockEntitlementCache {
	return &mockEntitlementCache{snapshots: map[string]*model.Entitlement{}}
}

func (m *mockEntitlementCache) Store(ctx context.Context, e *model.Entitlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.snapshots[e.AccountID] = &cp
	return nil
}

func (m *mockEntitlementCache) Get(ctx context.Context, accountID string) (*model.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.snapshots[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockEntitlementCache) Invalidate(ctx context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, accountID)
	return nil
}

// --- Test server harness ---

const (
	testAdminKey      = "admin-test-key"
	testWebhookSecret = "hook-test-secret"
)

type testHarness struct {
	server   *Server
	codes    *mockCodeRepo
	accounts *mockAccountRepo
	plans    *mockPlanRepo
}

func newTestHarness() *testHarness {
	logger := zerolog.Nop()
	tm := &mockTxManager{}
	codes := newMockCodeRepo()
	redemptions := &mockRedemptionRepo{}
	accounts := newMockAccountRepo()
	plans := newMockPlanRepo()
	purchases := &mockPurchaseRepo{}
	entitlements := newMockEntitlementRepo()
	cache := newMockEntitlementCache()

	accountUC := usecase.NewAccountUseCase(accounts, tm, &logger)
	validator := usecase.NewValidatorUseCase(codes, redemptions, &logger)
	entUC := usecase.NewEntitlementUseCase(accounts, codes, redemptions, plans, purchases, entitlements, cache, tm, &logger)
	redeemUC := usecase.NewRedemptionUseCase(validator, redemptions, entUC, cache, tm, &logger)
	adminUC := usecase.NewCodeAdminUseCase(codes, redemptions, entUC, cache, entitlements, tm, &logger)
	planUC := usecase.NewPlanUseCase(plans)

	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		panic(err)
	}
	auth := NewAuthManager("test-secret", false, "", time.Hour)

	server := NewServer(accountUC, validator, redeemUC, entUC, adminUC, planUC, auth, testAdminKey, testWebhookSecret, tr, &logger)
	return &testHarness{server: server, codes: codes, accounts: accounts, plans: plans}
}
