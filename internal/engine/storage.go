package engine

import (
	"context"
	"time"

	"github.com/patriziopezzilli/tcgarena-reservation/internal/model"
)

// StockLedger is the authoritative record of per-item quantity counters.
// It knows nothing about reservation entities; it only tracks aggregate
// Total/Held counts, which keeps its contract small and independently
// testable.  Each mutating method is a single atomic unit of work with
// respect to concurrent callers for the same item.
type StockLedger interface {
	// TryHold atomically checks Total-Held >= qty and, if so, increments
	// Held by qty.  It returns false (and changes nothing) when available
	// stock is insufficient.  ErrNotFound when the item is unknown.
	TryHold(ctx context.Context, itemID string, qty int) (bool, error)

	// Release decrements Held by qty, clamped at zero.  The clamp should
	// never fire under correct engine usage; it exists so a bookkeeping
	// bug cannot drive Held negative.
	Release(ctx context.Context, itemID string, qty int) error

	// Consume atomically decrements both Total and Held by qty.  Used on
	// pickup: the units leave inventory, so availability is unchanged.
	Consume(ctx context.Context, itemID string, qty int) error

	// Get returns a copy of the item's counters.  ErrNotFound when the
	// item is unknown.
	Get(ctx context.Context, itemID string) (*model.StockItem, error)

	// Upsert creates or replaces an item's merchant-controlled fields.
	// This is the seam for the external inventory collaborator; the
	// engine itself never calls it.
	Upsert(ctx context.Context, item *model.StockItem) error
}

// ReservationStore is the durable record of reservation rows.  Rows are
// created once and updated in place on state transitions; they are never
// deleted.  Implementations must reject Create calls whose pickup code
// collides with another reservation's code with ErrCodeConflict.
type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error

	// Get returns a copy of the reservation.  ErrNotFound when unknown.
	Get(ctx context.Context, id string) (*model.Reservation, error)

	// Update persists the reservation's status and timestamp fields.
	// ErrNotFound when unknown.
	Update(ctx context.Context, r *model.Reservation) error

	// ListExpired returns up to limit PENDING reservations whose expiry
	// lies strictly before now, oldest first.  Backed by the
	// (status, expires_at) index; used by the sweeper.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error)

	// ListExpiredByItem returns all PENDING reservations for one item
	// whose expiry lies strictly before now.  Backed by the
	// (item_id, status) index; used for lazy cleanup ahead of arbitration.
	ListExpiredByItem(ctx context.Context, itemID string, now time.Time) ([]*model.Reservation, error)

	// ListByRequester returns the requester's reservations, newest first,
	// terminal states included.
	ListByRequester(ctx context.Context, requesterID string) ([]*model.Reservation, error)
}
