package resumes

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrClaimConflict means another run already owns the record, or the
	// record is not in a claimable state. It is a no-op, not a failure.
	ErrClaimConflict = errors.New("claim conflict")
)
