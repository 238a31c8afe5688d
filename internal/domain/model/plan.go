package model

import (
	"time"

	"elearn-entitlements/internal/domain"

	"github.com/google/uuid"
)

// SubscriptionPlan is a named grant period a code or purchase can confer.
type SubscriptionPlan struct {
	ID           string
	Name         string
	DurationDays int
	CreatedAt    time.Time
}

func (p *SubscriptionPlan) IsZero() bool { return p == nil || p.ID == "" }

// NewSubscriptionPlan validates and constructs a plan.
func NewSubscriptionPlan(id, name string, durationDays int) (*SubscriptionPlan, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if name == "" || durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &SubscriptionPlan{
		ID:           id,
		Name:         name,
		DurationDays: durationDays,
		CreatedAt:    time.Now(),
	}, nil
}

// Duration returns the plan's grant period.
func (p *SubscriptionPlan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}
