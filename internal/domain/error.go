package domain

import "errors"

var (
	// Common infrastructure-facing errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Code rejection taxonomy. Each rejection is terminal and maps to a
	// distinct user-visible message; only ErrConcurrentConflict may be
	// retried, and only by the redemption engine itself.
	ErrCodeEmpty          = errors.New("code is empty")
	ErrCodeNotFound       = errors.New("code not found")
	ErrWrongKind          = errors.New("code not valid in this context")
	ErrCodeDeactivated    = errors.New("code has been deactivated")
	ErrCodeExpired        = errors.New("code has expired")
	ErrNotAssignedToYou   = errors.New("code is assigned to another account")
	ErrCodeAlreadyUsed    = errors.New("code already used")
	ErrConcurrentConflict = errors.New("concurrent redemption conflict")
	ErrIntegrityViolation = errors.New("code is referenced by redemptions")

	// Account administration
	ErrAccountSuspended = errors.New("account is suspended")
)

// RejectionName returns the stable machine-readable name for a code
// rejection, used as a message-catalog key and a metrics label. Unknown
// errors map to "internal".
func RejectionName(err error) string {
	switch {
	case errors.Is(err, ErrCodeEmpty):
		return "empty"
	case errors.Is(err, ErrCodeNotFound):
		return "not_found"
	case errors.Is(err, ErrWrongKind):
		return "wrong_kind"
	case errors.Is(err, ErrCodeDeactivated):
		return "deactivated"
	case errors.Is(err, ErrCodeExpired):
		return "expired"
	case errors.Is(err, ErrNotAssignedToYou):
		return "not_assigned_to_you"
	case errors.Is(err, ErrCodeAlreadyUsed):
		return "already_used"
	case errors.Is(err, ErrConcurrentConflict):
		return "concurrent_conflict"
	case errors.Is(err, ErrIntegrityViolation):
		return "integrity_violation"
	default:
		return "internal"
	}
}

// IsRejection reports whether err belongs to the code rejection taxonomy.
func IsRejection(err error) bool {
	return RejectionName(err) != "internal"
}
