package model

import (
	"time"

	"elearn-entitlements/internal/domain"

	"github.com/google/uuid"
)

// Account is an identity holding entitlements. The identity provider
// authenticates it elsewhere; here the email is just an opaque stable
// identifier.
type Account struct {
	ID          string
	Email       string
	DisplayName string
	IsSuspended bool
	SuspendedAt *time.Time
	CreatedAt   time.Time
}

func NewAccount(id, email, displayName string) (*Account, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if email == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Account{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}, nil
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }

func (a *Account) Suspend(now time.Time) {
	a.IsSuspended = true
	a.SuspendedAt = &now
}

func (a *Account) Reinstate() {
	a.IsSuspended = false
	a.SuspendedAt = nil
}
