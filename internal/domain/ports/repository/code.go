package repository

import (
	"context"

	"elearn-entitlements/internal/domain/model"
)

// CodeRepository is the port for issued access codes.
type CodeRepository interface {
	// Save creates or updates a code. Creating a value that already exists
	// returns domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, code *model.Code) error
	// FindByID returns domain.ErrNotFound when absent.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Code, error)
	// FindByValue looks a code up by its normalized value, redeemed or not.
	FindByValue(ctx context.Context, tx Tx, value string) (*model.Code, error)
	// Delete hard-deletes a code. When redemptions still reference it the
	// store rejects the delete with domain.ErrIntegrityViolation.
	Delete(ctx context.Context, tx Tx, id string) error
	// List returns codes most recently created first.
	List(ctx context.Context, tx Tx, limit, offset int) ([]*model.Code, error)
}
