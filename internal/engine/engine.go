package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/patriziopezzilli/tcgarena-reservation/internal/model"
)

// DefaultTTL is the fixed expiry window applied to every reservation at
// creation time.  It is never extended or renewed by any later action.
const DefaultTTL = 30 * time.Minute

// DefaultLockTimeout bounds how long a mutating operation waits for an
// item's arbitration lock before giving up with ErrBusy.
const DefaultLockTimeout = 250 * time.Millisecond

// maxCodeAttempts bounds the internal retry loop on pickup-code collisions.
// With an 80-bit code space this retry is practically never taken.
const maxCodeAttempts = 5

// Engine orchestrates creation, validation, pickup, cancellation and expiry
// of reservations.  It is the only component that mutates the stock
// ledger's held quantities, and it serializes all mutations per item so
// that stock is never oversold.  An Engine is safe for concurrent use.
type Engine struct {
	ledger      StockLedger
	store       ReservationStore
	codes       CodeValidator
	locks       *itemLocks
	ttl         time.Duration
	lockTimeout time.Duration
	now         func() time.Time
}

// New constructs an Engine on top of the given ledger and store.  Passing a
// non-positive ttl or lockTimeout selects the defaults.
func New(ledger StockLedger, store ReservationStore, ttl, lockTimeout time.Duration) *Engine {
	if ledger == nil || store == nil {
		panic("nil storage passed to engine.New")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Engine{
		ledger:      ledger,
		store:       store,
		locks:       newItemLocks(),
		ttl:         ttl,
		lockTimeout: lockTimeout,
		now:         time.Now,
	}
}

// Create places a hold of qty units on the item and returns the new PENDING
// reservation carrying its single-use pickup code and expiry timestamp.
// The availability check and the hold debit commit atomically under the
// item's arbitration lock, so concurrent Creates for the last unit resolve
// to exactly one success and ErrInsufficientStock for the rest.  Lapsed
// holds on the item are expired first so that unswept expired reservations
// can never mask genuinely available stock.
func (e *Engine) Create(ctx context.Context, itemID, requesterID string, qty int) (*model.Reservation, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	if err := e.locks.acquire(ctx, itemID, e.lockTimeout); err != nil {
		return nil, err
	}
	defer e.locks.release(itemID)

	now := e.now().UTC()
	if err := e.expireLapsedLocked(ctx, itemID, now); err != nil {
		return nil, err
	}
	item, err := e.ledger.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	ok, err := e.ledger.TryHold(ctx, itemID, qty)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInsufficientStock
	}

	r := &model.Reservation{
		ID:          uuid.NewString(),
		ItemID:      itemID,
		RequesterID: requesterID,
		ShopID:      item.ShopID,
		Quantity:    qty,
		Status:      model.StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(e.ttl),
	}
	for attempt := 0; ; attempt++ {
		code, genErr := e.codes.Generate()
		if genErr != nil {
			err = genErr
			break
		}
		r.Code = code
		err = e.store.Create(ctx, r)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, ErrCodeConflict) || attempt+1 >= maxCodeAttempts {
			break
		}
	}
	// The hold was debited but the row never landed; give the stock back.
	if relErr := e.ledger.Release(ctx, itemID, qty); relErr != nil {
		log.Printf("engine: release after failed create item_id=%s qty=%d: %v", itemID, qty, relErr)
	}
	return nil, err
}

// Validate transitions a reservation from PENDING to VALIDATED after
// checking the presented pickup code.  The expiry check is recomputed from
// the stored timestamp against the server clock; a lapsed reservation is
// expired on the spot (releasing its hold) and reported as ErrExpired even
// when no sweep has run yet.  Validating an already-VALIDATED reservation
// is ErrAlreadyValidated, never a no-op, so a leaked code cannot be reused.
func (e *Engine) Validate(ctx context.Context, reservationID, presentedCode string) (*model.Reservation, error) {
	r, err := e.lockReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	defer e.locks.release(r.ItemID)

	now := e.now().UTC()
	switch {
	case r.Status == model.StatusValidated:
		return nil, ErrAlreadyValidated
	case r.Status == model.StatusExpired:
		return nil, ErrExpired
	case r.Status != model.StatusPending:
		return nil, ErrInvalidState
	case r.ExpiredBy(now):
		if err := e.expireLocked(ctx, r); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}
	if !e.codes.Check(r.Code, presentedCode) {
		log.Printf("engine: code mismatch reservation_id=%s shop_id=%s", r.ID, r.ShopID)
		return nil, ErrCodeMismatch
	}
	r.Status = model.StatusValidated
	r.ValidatedAt = &now
	if err := e.store.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CompletePickup transitions a VALIDATED reservation to PICKED_UP and
// permanently removes the reserved units from inventory: total and held
// both drop by the reserved quantity, so availability is unchanged.
func (e *Engine) CompletePickup(ctx context.Context, reservationID string) (*model.Reservation, error) {
	r, err := e.lockReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	defer e.locks.release(r.ItemID)

	if !r.Status.CanTransitionTo(model.StatusPickedUp) {
		return nil, ErrInvalidState
	}
	now := e.now().UTC()
	r.Status = model.StatusPickedUp
	r.PickedUpAt = &now
	if err := e.store.Update(ctx, r); err != nil {
		return nil, err
	}
	if err := e.ledger.Consume(ctx, r.ItemID, r.Quantity); err != nil {
		// Roll the transition back so the pickup stays retryable instead
		// of a terminal row stranding its hold.
		r.Status = model.StatusValidated
		r.PickedUpAt = nil
		if rbErr := e.store.Update(ctx, r); rbErr != nil {
			log.Printf("engine: rollback after failed consume reservation_id=%s item_id=%s qty=%d: %v",
				r.ID, r.ItemID, r.Quantity, rbErr)
		}
		return nil, err
	}
	return r, nil
}

// Cancel transitions a PENDING or VALIDATED reservation to CANCELLED and
// returns its held quantity to available stock.  A PENDING reservation
// whose window already lapsed is expired instead and reported as
// ErrExpired; the authoritative time check wins over the stored status.
func (e *Engine) Cancel(ctx context.Context, reservationID, reason string) (*model.Reservation, error) {
	r, err := e.lockReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	defer e.locks.release(r.ItemID)

	if !r.Status.CanTransitionTo(model.StatusCancelled) {
		if r.Status == model.StatusExpired {
			return nil, ErrExpired
		}
		return nil, ErrInvalidState
	}
	now := e.now().UTC()
	if r.Status == model.StatusPending && r.ExpiredBy(now) {
		if err := e.expireLocked(ctx, r); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}
	// Release first: a failure here changes nothing and the cancel can
	// simply be retried.  If the status write after it fails, the hold is
	// re-debited so the reservation never ends terminal with its stock
	// still counted as held.
	if err := e.ledger.Release(ctx, r.ItemID, r.Quantity); err != nil {
		return nil, err
	}
	prev := r.Status
	r.Status = model.StatusCancelled
	r.CancelledAt = &now
	if reason != "" {
		r.CancelReason = &reason
	}
	if err := e.store.Update(ctx, r); err != nil {
		r.Status = prev
		r.CancelledAt = nil
		r.CancelReason = nil
		e.restoreHold(ctx, r.ItemID, r.Quantity)
		return nil, err
	}
	return r, nil
}

// Expire transitions a lapsed PENDING reservation to EXPIRED and releases
// its hold.  It is invoked by the expiry sweeper, never by a user action,
// and is idempotent in the sweep sense: re-running it against a
// reservation that is no longer a lapsed PENDING returns ErrInvalidState
// and changes nothing.
func (e *Engine) Expire(ctx context.Context, reservationID string) error {
	r, err := e.lockReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	defer e.locks.release(r.ItemID)

	if r.Status != model.StatusPending || !r.ExpiredBy(e.now().UTC()) {
		return ErrInvalidState
	}
	return e.expireLocked(ctx, r)
}

// Availability returns the item's committed counters.  Reads immediately
// after any committed mutation reflect that mutation.
func (e *Engine) Availability(ctx context.Context, itemID string) (*model.StockItem, error) {
	return e.ledger.Get(ctx, itemID)
}

// GetForRequester returns one reservation scoped to its owner.  A
// reservation belonging to a different requester is reported as
// ErrNotFound rather than leaking its existence.
func (e *Engine) GetForRequester(ctx context.Context, reservationID, requesterID string) (*model.Reservation, error) {
	r, err := e.store.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.RequesterID != requesterID {
		return nil, ErrNotFound
	}
	return r, nil
}

// ListForRequester returns the requester's reservation history, newest
// first, terminal states included.
func (e *Engine) ListForRequester(ctx context.Context, requesterID string) ([]*model.Reservation, error) {
	return e.store.ListByRequester(ctx, requesterID)
}

// lockReservation loads a reservation, acquires its item's arbitration
// lock and reloads the row under the lock so the caller observes a state
// that cannot change underneath it.  The caller must release the lock for
// the returned reservation's ItemID.
func (e *Engine) lockReservation(ctx context.Context, reservationID string) (*model.Reservation, error) {
	r, err := e.store.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	itemID := r.ItemID
	if err := e.locks.acquire(ctx, itemID, e.lockTimeout); err != nil {
		return nil, err
	}
	r, err = e.store.Get(ctx, reservationID)
	if err != nil {
		e.locks.release(itemID)
		return nil, err
	}
	return r, nil
}

// expireLocked marks r EXPIRED and releases its hold.  The caller must
// hold the item lock and have verified r is a lapsed PENDING reservation.
// The release commits first; if the status write then fails the hold is
// re-debited, so a single storage error leaves the reservation PENDING
// and retryable rather than terminal with its stock stranded.
func (e *Engine) expireLocked(ctx context.Context, r *model.Reservation) error {
	if err := e.ledger.Release(ctx, r.ItemID, r.Quantity); err != nil {
		return err
	}
	prev := r.Status
	r.Status = model.StatusExpired
	if err := e.store.Update(ctx, r); err != nil {
		r.Status = prev
		e.restoreHold(ctx, r.ItemID, r.Quantity)
		return err
	}
	log.Printf("engine: reservation expired reservation_id=%s item_id=%s qty=%d expired_at=%s",
		r.ID, r.ItemID, r.Quantity, e.now().UTC().Format(time.RFC3339))
	return nil
}

// restoreHold re-debits a hold whose release turned out to be premature.
// The caller still holds the item lock, so the stock freed moments ago
// cannot have been claimed by anyone else and the conditional debit
// passes, unless the merchant shrank total in the meantime.  A failure
// here leaves held below the live reservations it should back.
func (e *Engine) restoreHold(ctx context.Context, itemID string, qty int) {
	ok, err := e.ledger.TryHold(ctx, itemID, qty)
	if err != nil || !ok {
		log.Printf("engine: restore hold failed item_id=%s qty=%d ok=%t err=%v", itemID, qty, ok, err)
	}
}

// expireLapsedLocked expires every lapsed PENDING reservation for one item.
// Called with the item lock held, ahead of an availability check, so that
// sweep latency can never make stock look scarcer than it is.
func (e *Engine) expireLapsedLocked(ctx context.Context, itemID string, now time.Time) error {
	lapsed, err := e.store.ListExpiredByItem(ctx, itemID, now)
	if err != nil {
		return err
	}
	for _, r := range lapsed {
		if err := e.expireLocked(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
