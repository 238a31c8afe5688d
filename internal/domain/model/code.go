package model

import (
	"strings"
	"time"

	"elearn-entitlements/internal/domain"

	"github.com/google/uuid"
)

// CodeKind is the variant of an access code. It determines reuse and
// assignment rules and is immutable after creation.
type CodeKind string

const (
	// CodeKindMaster is unlimited-use and privileged: any number of
	// distinct accounts may redeem it, each at most once in effect.
	CodeKindMaster CodeKind = "master"
	// CodeKindOneTime is consumed by exactly one redemption, ever.
	CodeKindOneTime CodeKind = "one_time"
	// CodeKindInstructorActivation is single-use and may be pre-bound to
	// one named account.
	CodeKindInstructorActivation CodeKind = "instructor_activation"
)

func (k CodeKind) Valid() bool {
	switch k {
	case CodeKindMaster, CodeKindOneTime, CodeKindInstructorActivation:
		return true
	}
	return false
}

// SingleUse reports whether the store must enforce at most one redemption
// for codes of this kind.
func (k CodeKind) SingleUse() bool { return k != CodeKindMaster }

// RedemptionContext is where a code is presented: activating a
// subscription or activating instructor access. The kind decides which
// contexts are acceptable; the lexical shape of the value never does.
type RedemptionContext string

const (
	ContextSubscription RedemptionContext = "subscription"
	ContextInstructor   RedemptionContext = "instructor"
)

func (c RedemptionContext) Valid() bool {
	return c == ContextSubscription || c == ContextInstructor
}

// AllowedIn reports whether a code of kind k may be redeemed in context c.
// Master codes work everywhere; the single-use kinds are context-bound.
func (k CodeKind) AllowedIn(c RedemptionContext) bool {
	switch k {
	case CodeKindMaster:
		return true
	case CodeKindOneTime:
		return c == ContextSubscription
	case CodeKindInstructorActivation:
		return c == ContextInstructor
	}
	return false
}

// Code is a redeemable token granting an entitlement.
type Code struct {
	ID         string
	Value      string // normalized, unique
	Kind       CodeKind
	PlanID     *string // subscription plan granted on redemption; nil = default grant
	IsActive   bool
	ExpiresAt  *time.Time // nil = never expires
	AssignedTo *string    // account ID; when set only that account may redeem
	IssuedBy   *string    // nil when issued by the system
	CreatedAt  time.Time
}

// NormalizeCodeValue maps raw holder input to the canonical stored form.
func NormalizeCodeValue(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NewCode validates and constructs a code. The value is normalized here so
// lookups never depend on how the holder typed it.
func NewCode(id, value string, kind CodeKind) (*Code, error) {
	if id == "" {
		id = uuid.NewString()
	}
	value = NormalizeCodeValue(value)
	if value == "" || !kind.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	return &Code{
		ID:        id,
		Value:     value,
		Kind:      kind,
		IsActive:  true,
		CreatedAt: time.Now(),
	}, nil
}

func (c *Code) IsZero() bool { return c == nil || c.ID == "" }

// Expired reports whether the code's expiry has passed. A nil ExpiresAt
// never expires.
func (c *Code) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}
