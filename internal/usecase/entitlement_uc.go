// File: internal/usecase/entitlement_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"elearn-entitlements/internal/domain"
	"elearn-entitlements/internal/domain/model"
	"elearn-entitlements/internal/domain/ports/repository"
	"elearn-entitlements/internal/infra/logging"
	"elearn-entitlements/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// DefaultGrantPeriod is the subscription period a code confers when it
// carries no plan.
const DefaultGrantPeriod = 30 * 24 * time.Hour

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

// EntitlementUseCase keeps an account's cached entitlement consistent with
// the authoritative code/redemption/purchase state. The snapshot it writes
// is a read optimization only; every recompute re-derives from the store.
type EntitlementUseCase interface {
	// Get returns the account's snapshot, lazily downgrading an expired
	// subscription on read. A missing snapshot is recomputed on the fly.
	Get(ctx context.Context, accountID string) (*model.Entitlement, error)
	// Recompute re-derives and persists the snapshot inside the caller's
	// transaction.
	Recompute(ctx context.Context, tx repository.Tx, accountID string, now time.Time) (*model.Entitlement, error)
	// CascadeCodeStatus recomputes every account whose access derives from
	// the code, in the caller's transaction. Returns the affected account
	// IDs so the caller can fan out cache refreshes after commit.
	CascadeCodeStatus(ctx context.Context, tx repository.Tx, codeID string, now time.Time) ([]string, error)
	// ApplyPurchase records the payment provider's signal and merges it
	// into the snapshot.
	ApplyPurchase(ctx context.Context, accountID, planID string, status model.PurchaseStatus, expiresAt *time.Time) (*model.Entitlement, error)
	SuspendAccount(ctx context.Context, accountID string) (*model.Entitlement, error)
	ReinstateAccount(ctx context.Context, accountID string) (*model.Entitlement, error)
	// DeleteAccount permanently removes the account and its dependent
	// records. Redemption history survives.
	DeleteAccount(ctx context.Context, accountID string) error
	// SweepExpired downgrades snapshots whose subscription expiry has
	// passed. Returns the number downgraded.
	SweepExpired(ctx context.Context) (int, error)
}

type entitlementUC struct {
	accounts     repository.AccountRepository
	codes        repository.CodeRepository
	redemptions  repository.RedemptionRepository
	plans        repository.SubscriptionPlanRepository
	purchases    repository.PurchaseRepository
	entitlements repository.EntitlementRepository
	cache        repository.EntitlementCache
	tm           repository.TransactionManager
	log          *zerolog.Logger
}

func NewEntitlementUseCase(
	accounts repository.AccountRepository,
	codes repository.CodeRepository,
	redemptions repository.RedemptionRepository,
	plans repository.SubscriptionPlanRepository,
	purchases repository.PurchaseRepository,
	entitlements repository.EntitlementRepository,
	cache repository.EntitlementCache,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *entitlementUC {
	return &entitlementUC{
		accounts:     accounts,
		codes:        codes,
		redemptions:  redemptions,
		plans:        plans,
		purchases:    purchases,
		entitlements: entitlements,
		cache:        cache,
		tm:           tm,
		log:          logger,
	}
}

func (u *entitlementUC) Get(ctx context.Context, accountID string) (*model.Entitlement, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.Get")()

	now := time.Now()
	ent, err := u.entitlements.FindByAccount(ctx, repository.NoTX, accountID)
	if errors.Is(err, domain.ErrNotFound) {
		// First read for this account: build the snapshot.
		err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			ent, err = u.Recompute(ctx, tx, accountID, now)
			return err
		})
	}
	if err != nil {
		return nil, err
	}

	// Lazy expiry: there is no reliance on the background sweep; any read
	// checks the expiry first and downgrades on the fly.
	if ent.DowngradeExpired(now) {
		err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			// Re-read under the transaction so a racing recompute is
			// never overwritten with this stale copy.
			fresh, err := u.entitlements.FindByAccount(ctx, tx, accountID)
			if err != nil {
				return err
			}
			if fresh.DowngradeExpired(now) {
				if err := u.entitlements.Save(ctx, tx, fresh); err != nil {
					return err
				}
				metrics.IncEntitlementDowngraded("lazy_read")
			}
			ent = fresh
			return nil
		})
		if err != nil {
			return nil, err
		}
		u.refreshCache(ctx, ent)
	}
	return ent, nil
}

func (u *entitlementUC) Recompute(ctx context.Context, tx repository.Tx, accountID string, now time.Time) (*model.Entitlement, error) {
	acct, err := u.accounts.FindByID(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	ent := model.NewEntitlement(accountID, now)
	instructor := false

	reds, err := u.redemptions.ListByAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	for _, r := range reds {
		code, err := u.codes.FindByID(ctx, tx, r.CodeID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !code.IsActive {
			// Deactivation revokes forward-looking access but the
			// redemption row stays as audit history. The holder sees why.
			ent.CodeDeactivated = true
			continue
		}
		if code.Kind != model.CodeKindOneTime {
			instructor = true
		}
		if r.Context == model.ContextSubscription {
			expires, err := u.grantExpiry(ctx, tx, code, r.RedeemedAt)
			if err != nil {
				return nil, err
			}
			if now.Before(expires) {
				exp := expires
				ent.GrantSubscription(code.PlanID, &exp)
			}
		}
	}

	// Purchase-derived subscriptions are unioned with code-derived ones,
	// not exclusive.
	purchases, err := u.purchases.ListByAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	for _, p := range purchases {
		if p.Live(now) {
			planID := p.PlanID
			ent.GrantSubscription(&planID, p.ExpiresAt)
		}
	}

	// Suspension removes instructor access but keeps the subscription
	// record.
	if !acct.IsSuspended {
		ent.HasInstructorAccess = instructor
	}

	if err := u.entitlements.Save(ctx, tx, ent); err != nil {
		return nil, err
	}
	return ent, nil
}

// grantExpiry resolves the subscription period a code confers, counted from
// the redemption time.
func (u *entitlementUC) grantExpiry(ctx context.Context, tx repository.Tx, code *model.Code, redeemedAt time.Time) (time.Time, error) {
	if code.PlanID == nil {
		return redeemedAt.Add(DefaultGrantPeriod), nil
	}
	plan, err := u.plans.FindByID(ctx, tx, *code.PlanID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return redeemedAt.Add(DefaultGrantPeriod), nil
		}
		return time.Time{}, err
	}
	return redeemedAt.Add(plan.Duration()), nil
}

func (u *entitlementUC) CascadeCodeStatus(ctx context.Context, tx repository.Tx, codeID string, now time.Time) ([]string, error) {
	accounts, err := u.redemptions.ListAccountsByCode(ctx, tx, codeID)
	if err != nil {
		return nil, err
	}
	for _, accountID := range accounts {
		if _, err := u.Recompute(ctx, tx, accountID, now); err != nil {
			return nil, err
		}
	}
	metrics.AddCascadeRecomputes(len(accounts))
	return accounts, nil
}

func (u *entitlementUC) ApplyPurchase(ctx context.Context, accountID, planID string, status model.PurchaseStatus, expiresAt *time.Time) (*model.Entitlement, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.ApplyPurchase")()

	now := time.Now()
	purchase, err := model.NewPurchase(accountID, planID, status, expiresAt, now)
	if err != nil {
		return nil, err
	}

	var ent *model.Entitlement
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.purchases.Upsert(ctx, tx, purchase); err != nil {
			return err
		}
		ent, err = u.Recompute(ctx, tx, accountID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	u.refreshCache(ctx, ent)
	return ent, nil
}

func (u *entitlementUC) SuspendAccount(ctx context.Context, accountID string) (*model.Entitlement, error) {
	return u.setSuspended(ctx, accountID, true)
}

func (u *entitlementUC) ReinstateAccount(ctx context.Context, accountID string) (*model.Entitlement, error) {
	return u.setSuspended(ctx, accountID, false)
}

func (u *entitlementUC) setSuspended(ctx context.Context, accountID string, suspended bool) (*model.Entitlement, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.setSuspended")()

	now := time.Now()
	var ent *model.Entitlement
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		acct, err := u.accounts.FindByID(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if suspended {
			acct.Suspend(now)
		} else {
			acct.Reinstate()
		}
		if err := u.accounts.Save(ctx, tx, acct); err != nil {
			return err
		}
		ent, err = u.Recompute(ctx, tx, accountID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	u.refreshCache(ctx, ent)
	u.log.Info().Str("account_id", accountID).Bool("suspended", suspended).Msg("account suspension changed")
	return ent, nil
}

func (u *entitlementUC) DeleteAccount(ctx context.Context, accountID string) error {
	defer logging.TraceDuration(u.log, "EntitlementUC.DeleteAccount")()

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return u.accounts.DeleteCascade(ctx, tx, accountID)
	})
	if err != nil {
		return err
	}
	if u.cache != nil {
		if err := u.cache.Invalidate(ctx, accountID); err != nil {
			u.log.Warn().Err(err).Str("account_id", accountID).Msg("entitlement cache invalidate failed")
		}
	}
	u.log.Info().Str("account_id", accountID).Msg("account permanently deleted")
	return nil
}

func (u *entitlementUC) SweepExpired(ctx context.Context) (int, error) {
	now := time.Now()
	accounts, err := u.entitlements.ListExpiredActive(ctx, repository.NoTX, now, 500)
	if err != nil {
		return 0, err
	}
	for _, accountID := range accounts {
		var ent *model.Entitlement
		err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			var err error
			ent, err = u.Recompute(ctx, tx, accountID, now)
			return err
		})
		if err != nil {
			u.log.Error().Err(err).Str("account_id", accountID).Msg("expiry sweep recompute failed")
			continue
		}
		u.refreshCache(ctx, ent)
		metrics.IncEntitlementDowngraded("sweep")
	}
	return len(accounts), nil
}

// refreshCache pushes a committed snapshot to the client cache. Failures
// are logged, not returned: the store already holds the truth and the
// cache signals its own refresh.
func (u *entitlementUC) refreshCache(ctx context.Context, ent *model.Entitlement) {
	if u.cache == nil || ent == nil {
		return
	}
	if err := u.cache.Store(ctx, ent); err != nil {
		u.log.Warn().Err(err).Str("account_id", ent.AccountID).Msg("entitlement cache refresh failed")
	}
}
