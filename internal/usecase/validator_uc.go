package usecase

import (
	"context"
	"errors"
	"time"

	"elearn-entitlements/internal/domain"
	"elearn-entitlements/internal/domain/model"
	"elearn-entitlements/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ValidatorUseCase = (*validatorUC)(nil)

// ValidatorUseCase is the pure decision logic for code redemption. It has
// no side effects and is safe to call repeatedly, e.g. for live input-field
// feedback. The check order is a user-facing contract: the first violated
// rule is the one reported, so a code that is both deactivated and expired
// always reports deactivated.
type ValidatorUseCase interface {
	Validate(ctx context.Context, tx repository.Tx, rawValue, accountID string, rctx model.RedemptionContext, now time.Time) (*model.Code, error)
}

type validatorUC struct {
	codes       repository.CodeRepository
	redemptions repository.RedemptionRepository
	log         *zerolog.Logger
}

func NewValidatorUseCase(codes repository.CodeRepository, redemptions repository.RedemptionRepository, logger *zerolog.Logger) *validatorUC {
	return &validatorUC{codes: codes, redemptions: redemptions, log: logger}
}

func (u *validatorUC) Validate(ctx context.Context, tx repository.Tx, rawValue, accountID string, rctx model.RedemptionContext, now time.Time) (*model.Code, error) {
	if accountID == "" || !rctx.Valid() {
		return nil, domain.ErrInvalidArgument
	}

	// 1. normalize
	value := model.NormalizeCodeValue(rawValue)
	if value == "" {
		return nil, domain.ErrCodeEmpty
	}

	// 2. lookup
	code, err := u.codes.FindByValue(ctx, tx, value)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, err
	}

	// 3. kind vs. context
	if !code.Kind.AllowedIn(rctx) {
		return nil, domain.ErrWrongKind
	}

	// 4. administrative switch blocks everything else
	if !code.IsActive {
		return nil, domain.ErrCodeDeactivated
	}

	// 5. expiry
	if code.Expired(now) {
		return nil, domain.ErrCodeExpired
	}

	// 6. pre-assignment
	if code.AssignedTo != nil && *code.AssignedTo != accountID {
		return nil, domain.ErrNotAssignedToYou
	}

	// 7. single-use consumption, by any account. Master codes skip this:
	// re-redemption by the same account is an idempotent success handled
	// by the engine.
	if code.Kind.SingleUse() {
		n, err := u.redemptions.CountByCode(ctx, tx, code.ID)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, domain.ErrCodeAlreadyUsed
		}
	}

	return code, nil
}
