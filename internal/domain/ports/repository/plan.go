package repository

import (
	"context"

	"elearn-entitlements/internal/domain/model"
)

// SubscriptionPlanRepository is the port for grant plans.
type SubscriptionPlanRepository interface {
	Save(ctx context.Context, tx Tx, p *model.SubscriptionPlan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SubscriptionPlan, error)
	List(ctx context.Context, tx Tx) ([]*model.SubscriptionPlan, error)
}
