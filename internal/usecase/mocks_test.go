// File: internal/usecase/mocks_test.go
//go:build !integration

package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"elearn-entitlements/internal/domain"
	"elearn-entitlements/internal/domain/model"
	"elearn-entitlements/internal/domain/ports/repository"
	"elearn-entitlements/internal/usecase"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type mockTxManager struct{}

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// --- codes ---

type memCodeRepo struct {
	mu       sync.RWMutex
	byID     map[string]*model.Code
	SaveFunc func(ctx context.Context, tx repository.Tx, code *model.Code) error
}

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{byID: make(map[string]*model.Code)}
}

func (m *memCodeRepo) Save(ctx context.Context, tx repository.Tx, code *model.Code) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, tx, code); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.byID {
		if c.Value == code.Value && id != code.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *code
	m.byID[code.ID] = &cp
	return nil
}

func (m *memCodeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Code, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCodeRepo) FindByValue(ctx context.Context, tx repository.Tx, value string) (*model.Code, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.byID {
		if c.Value == value {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memCodeRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memCodeRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.Code, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Code
	for _, c := range m.byID {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// --- redemptions ---

// memRedemptionRepo mirrors the store's uniqueness constraints: one row
// ever per single-use code, one row per (code, account) pair.
type memRedemptionRepo struct {
	mu         sync.Mutex
	rows       []*model.Redemption
	InsertFunc func(ctx context.Context, tx repository.Tx, r *model.Redemption) error
}

func newMemRedemptionRepo() *memRedemptionRepo {
	return &memRedemptionRepo{}
}

func (m *memRedemptionRepo) Insert(ctx context.Context, tx repository.Tx, r *model.Redemption) error {
	if m.InsertFunc != nil {
		if err := m.InsertFunc(ctx, tx, r); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.CodeID == r.CodeID && (existing.SingleUse || existing.AccountID == r.AccountID) {
			return domain.ErrConcurrentConflict
		}
	}
	cp := *r
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memRedemptionRepo) CountByCode(ctx context.Context, tx repository.Tx, codeID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.CodeID == codeID {
			n++
		}
	}
	return n, nil
}

func (m *memRedemptionRepo) FindByCodeAndAccount(ctx context.Context, tx repository.Tx, codeID, accountID string) (*model.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.CodeID == codeID && r.AccountID == accountID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRedemptionRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Redemption
	for _, r := range m.rows {
		if r.AccountID == accountID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RedeemedAt.Before(out[j].RedeemedAt) })
	return out, nil
}

func (m *memRedemptionRepo) ListAccountsByCode(ctx context.Context, tx repository.Tx, codeID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, r := range m.rows {
		if r.CodeID == codeID && !seen[r.AccountID] {
			seen[r.AccountID] = true
			out = append(out, r.AccountID)
		}
	}
	return out, nil
}

// --- accounts ---

type memAccountRepo struct {
	mu      sync.RWMutex
	byID    map[string]*model.Account
	deleted []string
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{byID: make(map[string]*model.Account)}
}

func (m *memAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAccountRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAccountRepo) DeleteCascade(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// --- plans ---

type memPlanRepo struct {
	mu   sync.RWMutex
	byID map[string]*model.SubscriptionPlan
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{byID: make(map[string]*model.SubscriptionPlan)}
}

func (m *memPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPlanRepo) List(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.SubscriptionPlan
	for _, p := range m.byID {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// --- purchases ---

type memPurchaseRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Purchase // key account|plan
}

func newMemPurchaseRepo() *memPurchaseRepo {
	return &memPurchaseRepo{rows: make(map[string]*model.Purchase)}
}

func (m *memPurchaseRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.rows[p.AccountID+"|"+p.PlanID] = &cp
	return nil
}

func (m *memPurchaseRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Purchase
	for _, p := range m.rows {
		if p.AccountID == accountID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- entitlements ---

type memEntitlementRepo struct {
	mu        sync.RWMutex
	byAccount map[string]*model.Entitlement

	// FindByAccountFunc, when set, replaces FindByAccount.
	FindByAccountFunc func(ctx context.Context, tx repository.Tx, accountID string) (*model.Entitlement, error)
}

func newMemEntitlementRepo() *memEntitlementRepo {
	return &memEntitlementRepo{byAccount: make(map[string]*model.Entitlement)}
}

func (m *memEntitlementRepo) Save(ctx context.Context, tx repository.Tx, e *model.Entitlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.byAccount[e.AccountID] = &cp
	return nil
}

func (m *memEntitlementRepo) FindByAccount(ctx context.Context, tx repository.Tx, accountID string) (*model.Entitlement, error) {
	if m.FindByAccountFunc != nil {
		return m.FindByAccountFunc(ctx, tx, accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byAccount[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEntitlementRepo) ListExpiredActive(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for id, e := range m.byAccount {
		if e.Subscription.Active && e.Subscription.Expired(now) {
			out = append(out, id)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memEntitlementRepo) Delete(ctx context.Context, tx repository.Tx, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byAccount, accountID)
	return nil
}

// --- entitlement cache ---

type memEntitlementCache struct {
	mu            sync.Mutex
	snapshots     map[string]*model.Entitlement
	stores        int
	invalidations int
}

func newMemEntitlementCache() *memEntitlementCache {
	return &memEntitlementCache{snapshots: make(map[string]*model.Entitlement)}
}

func (m *memEntitlementCache) Store(ctx context.Context, e *model.Entitlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.snapshots[e.AccountID] = &cp
	m.stores++
	return nil
}

func (m *memEntitlementCache) Get(ctx context.Context, accountID string) (*model.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.snapshots[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEntitlementCache) Invalidate(ctx context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, accountID)
	m.invalidations++
	return nil
}

// --- wired fixture ---

// fixture wires the full use-case stack over in-memory repos so tests can
// exercise flows end to end without a database.
type fixture struct {
	codes        *memCodeRepo
	redemptions  *memRedemptionRepo
	accounts     *memAccountRepo
	plans        *memPlanRepo
	purchases    *memPurchaseRepo
	entitlements *memEntitlementRepo
	cache        *memEntitlementCache

	validator usecase.ValidatorUseCase
	entUC     usecase.EntitlementUseCase
	redeemUC  usecase.RedemptionUseCase
	adminUC   usecase.CodeAdminUseCase
}

func newFixture() *fixture {
	f := &fixture{
		codes:        newMemCodeRepo(),
		redemptions:  newMemRedemptionRepo(),
		accounts:     newMemAccountRepo(),
		plans:        newMemPlanRepo(),
		purchases:    newMemPurchaseRepo(),
		entitlements: newMemEntitlementRepo(),
		cache:        newMemEntitlementCache(),
	}
	tm := &mockTxManager{}
	logger := newTestLogger()
	f.validator = usecase.NewValidatorUseCase(f.codes, f.redemptions, logger)
	f.entUC = usecase.NewEntitlementUseCase(f.accounts, f.codes, f.redemptions, f.plans, f.purchases, f.entitlements, f.cache, tm, logger)
	f.redeemUC = usecase.NewRedemptionUseCase(f.validator, f.redemptions, f.entUC, f.cache, tm, logger)
	f.adminUC = usecase.NewCodeAdminUseCase(f.codes, f.redemptions, f.entUC, f.cache, f.entitlements, tm, logger)
	return f
}

// addAccount registers a test account and returns its ID.
func (f *fixture) addAccount(email string) string {
	a, _ := model.NewAccount("", email, email)
	_ = f.accounts.Save(context.Background(), repository.NoTX, a)
	return a.ID
}
