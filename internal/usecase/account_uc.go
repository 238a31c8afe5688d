package usecase

import (
	"context"
	"errors"

	"elearn-entitlements/internal/domain"
	"elearn-entitlements/internal/domain/model"
	"elearn-entitlements/internal/domain/ports/repository"
	"elearn-entitlements/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// AccountUseCase exposes account registration and lookup. The identity
// provider has already authenticated the caller; the email here is just
// the opaque stable identifier it hands us.
type AccountUseCase interface {
	RegisterOrFetch(ctx context.Context, email, displayName string) (*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
}

type accountUC struct {
	accounts repository.AccountRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewAccountUseCase(accounts repository.AccountRepository, tm repository.TransactionManager, logger *zerolog.Logger) *accountUC {
	return &accountUC{accounts: accounts, tm: tm, log: logger}
}

func (u *accountUC) RegisterOrFetch(ctx context.Context, email, displayName string) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.RegisterOrFetch")()

	var acct *model.Account
	// Read and create as one atomic unit so two first-contact requests for
	// the same email cannot both insert.
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		existing, err := u.accounts.FindByEmail(ctx, tx, email)
		if err == nil {
			acct = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		na, err := model.NewAccount("", email, displayName)
		if err != nil {
			return err
		}
		if err := u.accounts.Save(ctx, tx, na); err != nil {
			return err
		}
		acct = na
		return nil
	})
	return acct, err
}

func (u *accountUC) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return u.accounts.FindByID(ctx, repository.NoTX, id)
}

func (u *accountUC) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return u.accounts.FindByEmail(ctx, repository.NoTX, email)
}
