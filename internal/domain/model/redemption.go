package model

import (
	"crypto/rand"
	"time"

	"elearn-entitlements/internal/domain"

	"github.com/oklog/ulid/v2"
)

// Redemption records one successful consumption of a code by an account.
// Rows are append-only: administrative revocation of a code never erases
// its redemption history.
//
// SingleUse is denormalized from the code kind at insert time so that the
// store itself can enforce exactly-once via a partial unique index on
// (code_id) WHERE single_use. The application-level check in the validator
// is only there for legible error messages; the index is the guarantee.
type Redemption struct {
	ID         string // ULID, time-ordered for the audit trail
	CodeID     string
	AccountID  string
	Context    RedemptionContext
	SingleUse  bool
	RedeemedAt time.Time
}

// NewRedemption constructs a redemption row for the given code.
func NewRedemption(code *Code, accountID string, rctx RedemptionContext, now time.Time) (*Redemption, error) {
	if code.IsZero() || accountID == "" || !rctx.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Redemption{
		ID:         id.String(),
		CodeID:     code.ID,
		AccountID:  accountID,
		Context:    rctx,
		SingleUse:  code.Kind.SingleUse(),
		RedeemedAt: now,
	}, nil
}
