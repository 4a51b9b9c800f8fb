package service

import (
	"errors"
)

// Sentinel errors for every rejection path. Handlers map these to HTTP
// statuses with errors.Is; anything else is a server-side failure.
var (
	// ErrNotFound covers both absent short codes and soft-deleted
	// links. The two must be indistinguishable to unauthenticated
	// callers.
	ErrNotFound = errors.New("short link not found")

	ErrLinkBanned      = errors.New("link has been banned by an administrator")
	ErrLinkDisabled    = errors.New("link has been disabled by its owner")
	ErrLinkExpired     = errors.New("link has expired")
	ErrVisitCapReached = errors.New("link visit limit reached")

	ErrInvalidCoordinate = errors.New("coordinate is missing or out of range")
	ErrInvalidRadius     = errors.New("radius must be greater than zero")
	ErrInvalidTargetURL  = errors.New("target URL must be a valid http or https URL")

	ErrShortCodeTaken = errors.New("short code already in use")
	ErrNotDeleted     = errors.New("link is not deleted")
	ErrForbidden      = errors.New("operation not permitted for this actor")
)

// stateError maps a non-admissible resolved state to its sentinel
func stateError(state LinkState) error {
	switch state {
	case StateDeleted:
		return ErrNotFound
	case StateBanned:
		return ErrLinkBanned
	case StateDisabled:
		return ErrLinkDisabled
	case StateExpired:
		return ErrLinkExpired
	case StateVisitCapReached:
		return ErrVisitCapReached
	default:
		return nil
	}
}
