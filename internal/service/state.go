package service

import (
	"time"

	"geogate/internal/model"
)

// LinkState is the resolved lifecycle state of a link at a point in
// time. Expired and VisitCapReached are derived from the expiry
// timestamp and counters on every resolution and are never persisted,
// so raising a cap or extending an expiry re-admits a link without any
// flag write.
type LinkState int

const (
	StateAdmissible LinkState = iota
	StateDeleted
	StateBanned
	StateDisabled
	StateExpired
	StateVisitCapReached
)

// String returns a short name for logging
func (s LinkState) String() string {
	switch s {
	case StateAdmissible:
		return "admissible"
	case StateDeleted:
		return "deleted"
	case StateBanned:
		return "banned"
	case StateDisabled:
		return "disabled"
	case StateExpired:
		return "expired"
	case StateVisitCapReached:
		return "visit-cap-reached"
	default:
		return "unknown"
	}
}

// ResolveLinkState computes the lifecycle state of a link at now.
// First match wins. Deleted shadows every other flag; banned shadows
// active so a restored-but-banned link stays inaccessible until an
// explicit unban.
func ResolveLinkState(link *model.Link, now time.Time) LinkState {
	switch {
	case link.IsDeleted:
		return StateDeleted
	case link.IsBanned:
		return StateBanned
	case !link.IsActive:
		return StateDisabled
	case link.IsExpired(now):
		return StateExpired
	case link.VisitCapReached():
		return StateVisitCapReached
	default:
		return StateAdmissible
	}
}
