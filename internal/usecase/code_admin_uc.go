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
var _ CodeAdminUseCase = (*codeAdminUC)(nil)

// IssueParams describes a code to issue. Value is optional; when empty a
// kind-prefixed random value is generated. ValidFor of zero means the code
// never expires.
type IssueParams struct {
	Kind       model.CodeKind
	Value      string
	PlanID     *string
	AssignedTo *string
	IssuedBy   *string
	ValidFor   time.Duration
}

// CodeAdminUseCase is the issuer-facing lifecycle surface. It is never
// exposed to code holders.
type CodeAdminUseCase interface {
	Issue(ctx context.Context, p IssueParams) (*model.Code, error)
	Get(ctx context.Context, id string) (*model.Code, error)
	List(ctx context.Context, limit, offset int) ([]*model.Code, error)
	// Deactivate flips the code off and synchronously downgrades every
	// entitlement deriving from it. Idempotent.
	Deactivate(ctx context.Context, id string) (*model.Code, error)
	// Reactivate restores the entitlements the holders had before the
	// deactivation. Idempotent.
	Reactivate(ctx context.Context, id string) (*model.Code, error)
	// Delete hard-deletes an unreferenced code. A code with redemptions is
	// retired instead: permanently deactivated, audit history preserved.
	// Returns true when the row was actually purged.
	Delete(ctx context.Context, id string) (bool, error)
}

type codeAdminUC struct {
	codes        repository.CodeRepository
	redemptions  repository.RedemptionRepository
	sync         EntitlementUseCase
	cache        repository.EntitlementCache
	entitlements repository.EntitlementRepository
	tm           repository.TransactionManager
	log          *zerolog.Logger
}

func NewCodeAdminUseCase(
	codes repository.CodeRepository,
	redemptions repository.RedemptionRepository,
	sync EntitlementUseCase,
	cache repository.EntitlementCache,
	entitlements repository.EntitlementRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *codeAdminUC {
	return &codeAdminUC{
		codes:        codes,
		redemptions:  redemptions,
		sync:         sync,
		cache:        cache,
		entitlements: entitlements,
		tm:           tm,
		log:          logger,
	}
}

const issueAttempts = 5

func (u *codeAdminUC) Issue(ctx context.Context, p IssueParams) (*model.Code, error) {
	defer logging.TraceDuration(u.log, "CodeAdminUC.Issue")()

	explicit := p.Value != ""
	for attempt := 0; attempt < issueAttempts; attempt++ {
		value := p.Value
		if !explicit {
			var err error
			value, err = generateCodeValue(p.Kind)
			if err != nil {
				return nil, err
			}
		}

		code, err := model.NewCode("", value, p.Kind)
		if err != nil {
			return nil, err
		}
		code.PlanID = p.PlanID
		code.AssignedTo = p.AssignedTo
		code.IssuedBy = p.IssuedBy
		if p.ValidFor > 0 {
			expires := code.CreatedAt.Add(p.ValidFor)
			code.ExpiresAt = &expires
		}

		err = u.codes.Save(ctx, repository.NoTX, code)
		if err == nil {
			metrics.IncCodeIssued(string(p.Kind))
			u.log.Info().Str("code_id", code.ID).Str("kind", string(p.Kind)).Msg("code issued")
			return code, nil
		}
		if errors.Is(err, domain.ErrAlreadyExists) && !explicit {
			continue // generated value collided, try another
		}
		return nil, err
	}
	return nil, domain.ErrAlreadyExists
}

func (u *codeAdminUC) Get(ctx context.Context, id string) (*model.Code, error) {
	return u.codes.FindByID(ctx, repository.NoTX, id)
}

func (u *codeAdminUC) List(ctx context.Context, limit, offset int) ([]*model.Code, error) {
	return u.codes.List(ctx, repository.NoTX, limit, offset)
}

func (u *codeAdminUC) Deactivate(ctx context.Context, id string) (*model.Code, error) {
	return u.setActive(ctx, id, false)
}

func (u *codeAdminUC) Reactivate(ctx context.Context, id string) (*model.Code, error) {
	return u.setActive(ctx, id, true)
}

// setActive flips IsActive and cascades the change into every dependent
// entitlement inside the same transaction. A deactivation that does not
// cascade would leave revoked access alive in client caches, so the
// recompute is not deferred or queued.
func (u *codeAdminUC) setActive(ctx context.Context, id string, active bool) (*model.Code, error) {
	defer logging.TraceDuration(u.log, "CodeAdminUC.setActive")()

	var code *model.Code
	var affected []string
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		code, err = u.codes.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if code.IsActive == active {
			return nil // idempotent
		}
		code.IsActive = active
		if err := u.codes.Save(ctx, tx, code); err != nil {
			return err
		}
		affected, err = u.sync.CascadeCodeStatus(ctx, tx, code.ID, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	u.fanOutRefresh(ctx, affected)
	u.log.Info().Str("code_id", id).Bool("active", active).Int("affected_accounts", len(affected)).Msg("code status changed")
	return code, nil
}

func (u *codeAdminUC) Delete(ctx context.Context, id string) (bool, error) {
	defer logging.TraceDuration(u.log, "CodeAdminUC.Delete")()

	purged := false
	var affected []string
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		code, err := u.codes.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		n, err := u.redemptions.CountByCode(ctx, tx, code.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			purged = true
			return u.codes.Delete(ctx, tx, code.ID)
		}

		// Redeemed codes are never hard-deleted: retire instead so the
		// audit trail survives, and cascade the revocation.
		if code.IsActive {
			code.IsActive = false
			if err := u.codes.Save(ctx, tx, code); err != nil {
				return err
			}
			affected, err = u.sync.CascadeCodeStatus(ctx, tx, code.ID, time.Now())
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	u.fanOutRefresh(ctx, affected)
	u.log.Info().Str("code_id", id).Bool("purged", purged).Msg("code deleted")
	return purged, nil
}

// fanOutRefresh pushes committed snapshots of the affected accounts to the
// client cache. The cache implementation may queue these asynchronously.
func (u *codeAdminUC) fanOutRefresh(ctx context.Context, accountIDs []string) {
	if u.cache == nil {
		return
	}
	for _, accountID := range accountIDs {
		ent, err := u.entitlements.FindByAccount(ctx, repository.NoTX, accountID)
		if err != nil {
			u.log.Warn().Err(err).Str("account_id", accountID).Msg("cascade cache refresh read failed")
			continue
		}
		if err := u.cache.Store(ctx, ent); err != nil {
			u.log.Warn().Err(err).Str("account_id", accountID).Msg("cascade cache refresh failed")
		}
	}
}
