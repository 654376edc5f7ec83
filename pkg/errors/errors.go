package errors

import (
	"errors"
	"fmt"
)

// Class sentinels. Every domain error wraps exactly one of these so callers
// can branch on the class with errors.Is without knowing the specific cause.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrConflict           = errors.New("conflict")
	ErrFinalization       = errors.New("settlement finalization failed")
)

var (
	ErrTicketNotFound     = fmt.Errorf("%w: ticket", ErrNotFound)
	ErrSoldTicketNotFound = fmt.Errorf("%w: sold ticket", ErrNotFound)
	ErrWalletNotFound     = fmt.Errorf("%w: seller wallet", ErrNotFound)
	ErrSessionNotFound    = fmt.Errorf("%w: payment session", ErrNotFound)

	ErrInvalidPNR      = fmt.Errorf("%w: pnr must be exactly 10 digits", ErrValidation)
	ErrInvalidPrice    = fmt.Errorf("%w: price must be greater than zero", ErrValidation)
	ErrInvalidDate     = fmt.Errorf("%w: travel date must be a valid calendar date", ErrValidation)
	ErrEmptyMessage    = fmt.Errorf("%w: message cannot be empty", ErrValidation)
	ErrMissingBuyer    = fmt.Errorf("%w: buyer email is required", ErrValidation)
	ErrInvalidRole     = fmt.Errorf("%w: sender role must be buyer, seller or system", ErrValidation)
	ErrInvalidArtifact = fmt.Errorf("%w: unsupported artifact file type", ErrValidation)

	// ErrPNRAlreadySold is the double-sale guard: a PNR may appear in
	// sold_tickets at most once, ever.
	ErrPNRAlreadySold          = fmt.Errorf("%w: this ticket has already been sold and cannot be resold", ErrConflict)
	ErrReleaseAlreadyRequested = fmt.Errorf("%w: a release request is already pending for this ticket", ErrConflict)

	ErrTicketNotShared     = fmt.Errorf("%w: ticket details must be shared before release", ErrPreconditionFailed)
	ErrReleaseNotConfirmed = fmt.Errorf("%w: release must be confirmed before payment", ErrPreconditionFailed)
)

// MissingField reports a required listing attribute that was absent or blank.
func MissingField(field string) error {
	return fmt.Errorf("%w: %s is required", ErrValidation, field)
}
