// File: internal/usecase/redemption_uc.go
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

// Compile-time check
var _ RedemptionUseCase = (*redemptionUC)(nil)

// RedemptionUseCase consumes a code and returns the holder's fresh
// entitlement. Validation, the redemption insert, and the entitlement
// snapshot are one atomic unit: one without the other must never be
// observable.
type RedemptionUseCase interface {
	Redeem(ctx context.Context, rawValue, accountID string, rctx model.RedemptionContext) (*model.Entitlement, error)
}

type redemptionUC struct {
	validator   ValidatorUseCase
	redemptions repository.RedemptionRepository
	sync        EntitlementUseCase
	cache       repository.EntitlementCache
	tm          repository.TransactionManager
	log         *zerolog.Logger
}

func NewRedemptionUseCase(
	validator ValidatorUseCase,
	redemptions repository.RedemptionRepository,
	sync EntitlementUseCase,
	cache repository.EntitlementCache,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *redemptionUC {
	return &redemptionUC{
		validator:   validator,
		redemptions: redemptions,
		sync:        sync,
		cache:       cache,
		tm:          tm,
		log:         logger,
	}
}

func (u *redemptionUC) Redeem(ctx context.Context, rawValue, accountID string, rctx model.RedemptionContext) (*model.Entitlement, error) {
	defer logging.TraceDuration(u.log, "RedemptionUC.Redeem")()

	var ent *model.Entitlement
	var kind model.CodeKind
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		now := time.Now()

		// Revalidate at commit time. A validation result from an earlier
		// request is never trusted: two racing redemptions of a one-time
		// code must resolve to one success and one rejection here.
		code, err := u.validator.Validate(ctx, tx, rawValue, accountID, rctx, now)
		if err != nil {
			return err
		}
		kind = code.Kind

		inserted, err := u.insertRedemption(ctx, tx, code, accountID, rctx, now)
		if err != nil {
			return err
		}
		if !inserted && code.Kind.SingleUse() {
			// The store's uniqueness constraint rejected a racing insert.
			// The one safe retry: revalidate, which now correctly reports
			// the code as used, and surface that instead of the raw
			// conflict.
			if _, verr := u.validator.Validate(ctx, tx, rawValue, accountID, rctx, now); verr != nil {
				return verr
			}
			return domain.ErrConcurrentConflict
		}

		ent, err = u.sync.Recompute(ctx, tx, accountID, now)
		return err
	})
	if err != nil {
		metrics.IncRedemption(redemptionKindLabel(kind), domain.RejectionName(err))
		return nil, err
	}

	// Snapshot is committed; refresh the client cache outside the
	// transaction. A cache failure never fails the redemption.
	if u.cache != nil {
		if cerr := u.cache.Store(ctx, ent); cerr != nil {
			u.log.Warn().Err(cerr).Str("account_id", accountID).Msg("entitlement cache refresh failed")
		}
	}
	metrics.IncRedemption(string(kind), "success")
	u.log.Info().Str("account_id", accountID).Str("kind", string(kind)).Str("context", string(rctx)).Msg("code redeemed")
	return ent, nil
}

// insertRedemption appends the redemption row. Master codes are idempotent
// per (code, account): an existing row is an effect-level success with no
// new row. Returns false when the store rejected a duplicate.
func (u *redemptionUC) insertRedemption(ctx context.Context, tx repository.Tx, code *model.Code, accountID string, rctx model.RedemptionContext, now time.Time) (bool, error) {
	if code.Kind == model.CodeKindMaster {
		_, err := u.redemptions.FindByCodeAndAccount(ctx, tx, code.ID, accountID)
		if err == nil {
			return true, nil // already redeemed by this account
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return false, err
		}
	}

	r, err := model.NewRedemption(code, accountID, rctx, now)
	if err != nil {
		return false, err
	}
	if err := u.redemptions.Insert(ctx, tx, r); err != nil {
		if errors.Is(err, domain.ErrConcurrentConflict) {
			if code.Kind == model.CodeKindMaster {
				// Racing duplicate by the same account; outcome unchanged.
				return true, nil
			}
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// redemptionKindLabel names the metric series for a redemption outcome.
// Rejections before the code lookup (empty input, unknown value) never
// resolve a kind; those series are labeled "unknown" instead of "".
func redemptionKindLabel(kind model.CodeKind) string {
	if kind == "" {
		return "unknown"
	}
	return string(kind)
}
