package model

import "time"

// SubscriptionGrant is the subscription slice of an entitlement. Code-derived
// and purchase-derived subscriptions are unioned into a single grant with
// the latest expiry winning.
type SubscriptionGrant struct {
	Active    bool       `json:"active"`
	PlanID    *string    `json:"plan_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the grant's expiry has passed. An inactive grant
// is trivially expired.
func (g SubscriptionGrant) Expired(now time.Time) bool {
	if !g.Active {
		return true
	}
	return g.ExpiresAt != nil && now.After(*g.ExpiresAt)
}

// Entitlement is the derived set of access grants attached to an account.
// It is a snapshot, never a source of truth: the synchronizer recomputes it
// from code, redemption, purchase, and suspension state, and every
// entitlement-affecting operation persists a fresh snapshot before
// returning. Downstream consumers read snapshots; they never decide.
type Entitlement struct {
	AccountID           string            `json:"account_id"`
	HasInstructorAccess bool              `json:"has_instructor_access"`
	Subscription        SubscriptionGrant `json:"subscription"`
	// CodeDeactivated is surfaced to the holder when a code their access
	// derives from has since been deactivated by an administrator.
	CodeDeactivated bool      `json:"code_deactivated"`
	SyncedAt        time.Time `json:"synced_at"`
}

// NewEntitlement returns the empty snapshot for an account.
func NewEntitlement(accountID string, now time.Time) *Entitlement {
	return &Entitlement{AccountID: accountID, SyncedAt: now}
}

// GrantSubscription merges a subscription grant into the snapshot, keeping
// the latest expiry. A nil expiresAt means an unbounded grant and always
// wins.
func (e *Entitlement) GrantSubscription(planID *string, expiresAt *time.Time) {
	if e.Subscription.Active && e.Subscription.ExpiresAt == nil {
		return // already unbounded
	}
	if e.Subscription.Active && expiresAt != nil && !expiresAt.After(*e.Subscription.ExpiresAt) {
		return // existing grant lasts longer
	}
	e.Subscription = SubscriptionGrant{Active: true, PlanID: planID, ExpiresAt: expiresAt}
}

// DowngradeExpired clears the subscription grant when its expiry has
// passed. Returns true when the snapshot changed.
func (e *Entitlement) DowngradeExpired(now time.Time) bool {
	if e.Subscription.Active && e.Subscription.Expired(now) {
		e.Subscription = SubscriptionGrant{}
		e.SyncedAt = now
		return true
	}
	return false
}
