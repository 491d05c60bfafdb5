// Package engine implements the reservation engine: the only component
// allowed to move stock between available and held, issue pickup codes and
// drive reservation state transitions.  Storage is abstracted behind the
// StockLedger and ReservationStore interfaces so the engine can run against
// MySQL in production and the in-memory backend in development and tests.
package engine

import "errors"

// Sentinel errors returned by engine operations.  Handlers compare with
// errors.Is and translate to HTTP status codes; none of these wrap storage
// internals.
var (
	// ErrInsufficientStock is returned by Create when the item's available
	// quantity is below the requested quantity at the moment of the atomic
	// check.  Callers should tell the user stock ran out, not retry blindly.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrNotFound is returned when a reservation or stock item identifier
	// is unknown.  Permanent; not retried.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation is attempted against a
	// reservation whose status does not admit it.  Permanent.
	ErrInvalidState = errors.New("invalid reservation state")

	// ErrAlreadyValidated is returned by Validate when the reservation has
	// already been validated.  Re-validation is deliberately an error rather
	// than an idempotent no-op so that a leaked code cannot be replayed.
	ErrAlreadyValidated = errors.New("reservation already validated")

	// ErrExpired is returned when the reservation's expiry window has
	// lapsed.  The caller must create a new reservation.
	ErrExpired = errors.New("reservation expired")

	// ErrCodeMismatch is returned by Validate when the presented code does
	// not match the reservation's pickup code.  Permanent; logged as a
	// client bug or tampering.
	ErrCodeMismatch = errors.New("pickup code mismatch")

	// ErrInvalidQuantity is returned by Create when the requested quantity
	// is below one.  Fractional and zero-quantity reservations are not a
	// thing; handlers reject these before the engine sees them, this is
	// the backstop.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrBusy is returned when the per-item arbitration lock could not be
	// acquired within the configured timeout.  Transient; safe to retry
	// with backoff.
	ErrBusy = errors.New("item busy, retry")

	// ErrCodeConflict is returned by ReservationStore.Create when the
	// generated pickup code collides with a live reservation's code.  The
	// engine retries generation internally; this error never reaches API
	// callers.
	ErrCodeConflict = errors.New("pickup code conflict")
)
