package model

import "time"

// Status enumerates the lifecycle states of a reservation.  The legal
// transitions are encoded in the transitions table below; every status
// change made by the engine goes through CanTransitionTo so that the rules
// live in exactly one place instead of being re-derived at call sites.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusValidated Status = "VALIDATED"
	StatusPickedUp  Status = "PICKED_UP"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

// transitions maps each status to the set of statuses it may move to.
// PICKED_UP, EXPIRED and CANCELLED are terminal and have no entries.
var transitions = map[Status][]Status{
	StatusPending:   {StatusValidated, StatusExpired, StatusCancelled},
	StatusValidated: {StatusPickedUp, StatusCancelled},
}

// CanTransitionTo reports whether moving from s to next is a legal
// state-machine step.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Holding reports whether a reservation in this status still counts
// against the item's held quantity (stock set aside but not consumed).
func (s Status) Holding() bool {
	return s == StatusPending || s == StatusValidated
}

// Valid reports whether s is one of the known statuses.  Used when
// scanning rows from storage.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusValidated, StatusPickedUp, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Reservation is one customer's temporary claim on a quantity of a
// StockItem.  Rows are never deleted; terminal reservations are retained
// for audit and history.  All timestamps are UTC and server-authoritative:
// expiry is always recomputed from ExpiresAt, never trusted from Status or
// from anything the client computed.
//
// Invariant: for any item, the sum of Quantity over reservations whose
// status is Holding() equals that item's Held counter.
type Reservation struct {
	ID           string     // reservations.id
	ItemID       string     // reservations.item_id
	RequesterID  string     // reservations.requester_id
	ShopID       string     // reservations.shop_id
	Quantity     int        // reservations.quantity (always >= 1)
	Status       Status     // reservations.status
	Code         string     // reservations.code (single-use pickup code)
	CreatedAt    time.Time  // reservations.created_at
	ExpiresAt    time.Time  // reservations.expires_at (CreatedAt + fixed window)
	ValidatedAt  *time.Time // reservations.validated_at (nullable)
	PickedUpAt   *time.Time // reservations.picked_up_at (nullable)
	CancelledAt  *time.Time // reservations.cancelled_at (nullable)
	CancelReason *string    // reservations.cancel_reason (nullable)
}

// ExpiredBy reports whether the reservation's expiry timestamp has lapsed
// at the given instant.  Callers must pass a server clock reading; the
// stored status is irrelevant here on purpose (a PENDING row past its
// expiry is already dead even if no sweep has run yet).
func (r *Reservation) ExpiredBy(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
