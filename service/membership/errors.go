package membership

import "errors"

// Domain errors for the membership lifecycle. Handlers classify failures
// with errors.Is; the underlying storage error stays wrapped in the chain.
var (
	// ErrNotFound means no membership (or no user, for Add) matches the
	// given identifier.
	ErrNotFound = errors.New("not found")

	// ErrInvalidMembershipType means the plan type is not one of
	// MonthlyMember, AnnualMember or Creator.
	ErrInvalidMembershipType = errors.New("invalid membership type")

	// ErrMembershipBlocked means the membership exists but has been
	// blocked by an administrator. Distinct from ErrNotFound: the id is
	// valid, access to the record is denied.
	ErrMembershipBlocked = errors.New("membership blocked")

	// ErrOperationFailed covers persistence failures with no more
	// specific cause.
	ErrOperationFailed = errors.New("operation failed")
)
