package model

import (
	"time"

	"elearn-entitlements/internal/domain"

	"github.com/google/uuid"
)

type PurchaseStatus string

const (
	PurchaseStatusActive   PurchaseStatus = "active"
	PurchaseStatusInactive PurchaseStatus = "inactive"
)

// Purchase is the payment provider's view of a subscription, as reported
// through the billing webhook. Checkout mechanics live entirely on the
// provider side; the synchronizer only unions this signal with code-derived
// grants.
type Purchase struct {
	ID        string
	AccountID string
	PlanID    string
	Status    PurchaseStatus
	ExpiresAt *time.Time
	UpdatedAt time.Time
}

func NewPurchase(accountID, planID string, status PurchaseStatus, expiresAt *time.Time, now time.Time) (*Purchase, error) {
	if accountID == "" || planID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if status != PurchaseStatusActive && status != PurchaseStatusInactive {
		return nil, domain.ErrInvalidArgument
	}
	return &Purchase{
		ID:        uuid.NewString(),
		AccountID: accountID,
		PlanID:    planID,
		Status:    status,
		ExpiresAt: expiresAt,
		UpdatedAt: now,
	}, nil
}

// Live reports whether the purchase currently confers a subscription.
func (p *Purchase) Live(now time.Time) bool {
	if p.Status != PurchaseStatusActive {
		return false
	}
	return p.ExpiresAt == nil || now.Before(*p.ExpiresAt)
}
