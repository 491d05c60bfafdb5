// Package queue defines message payloads exchanged over the message broker.
package queue

// Reservation lifecycle event types.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationPickedUp  = "reservation.picked_up"
)

// ReservationEvent is published whenever a reservation changes state
// through a user-facing operation.  It carries enough information for
// downstream consumers to log, notify, or feed analytics without querying
// the primary database.  The pickup code is deliberately absent: it is a
// secret shared only with the reserving customer.
type ReservationEvent struct {
	Type          string `json:"type"`
	ReservationID string `json:"reservation_id"`
	ItemID        string `json:"item_id"`
	ShopID        string `json:"shop_id"`
	RequesterID   string `json:"requester_id"`
	Quantity      int    `json:"quantity"`
	Status        string `json:"status"`
	ExpiresAt     string `json:"expires_at,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}
