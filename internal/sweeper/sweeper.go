// Package sweeper runs the background pass that converts time-lapsed
// PENDING reservations into released stock.
package sweeper

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/patriziopezzilli/tcgarena-reservation/internal/engine"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/model"
)

// expirer is the slice of the engine the sweeper needs.
type expirer interface {
	Expire(ctx context.Context, reservationID string) error
}

// lister is the slice of the reservation store the sweeper needs.
type lister interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error)
}

// Sweeper periodically expires lapsed reservations.  It is best-effort
// cleanup: correctness of availability never depends on it, because the
// engine re-checks expiry on every Create and Validate.  A failed sweep of
// one reservation is logged and does not block sweeping the others; the
// next cycle retries whatever is still lapsed.
type Sweeper struct {
	engine   expirer
	store    lister
	interval time.Duration
	batch    int
}

// New constructs a Sweeper.  Non-positive interval or batch select the
// 60 second / 500 row defaults.
func New(eng expirer, store lister, interval time.Duration, batch int) *Sweeper {
	if eng == nil || store == nil {
		panic("nil dependency passed to sweeper.New")
	}
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if batch <= 0 {
		batch = 500
	}
	return &Sweeper{engine: eng, store: store, interval: interval, batch: batch}
}

// Run executes sweep cycles until ctx is cancelled.  One cycle runs
// immediately on start so a restart does not leave lapsed holds sitting
// for a full interval.
func (s *Sweeper) Run(ctx context.Context) {
	log.Printf("sweeper: started interval=%s batch=%d", s.interval, s.batch)
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("sweeper: stopped: %v", ctx.Err())
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep expires one batch of lapsed reservations.  Exported for tests via
// Sweep; per-reservation ErrInvalidState means another actor (a lazy check
// or a concurrent cycle) already settled the reservation and is not an
// error worth logging.
func (s *Sweeper) sweep(ctx context.Context) {
	lapsed, err := s.store.ListExpired(ctx, time.Now().UTC(), s.batch)
	if err != nil {
		log.Printf("sweeper: list expired failed: %v", err)
		return
	}
	if len(lapsed) == 0 {
		return
	}
	expired := 0
	for _, r := range lapsed {
		if ctx.Err() != nil {
			return
		}
		err := s.engine.Expire(ctx, r.ID)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, engine.ErrInvalidState), errors.Is(err, engine.ErrNotFound):
			// already settled elsewhere
		default:
			log.Printf("sweeper: expire failed reservation_id=%s: %v", r.ID, err)
		}
	}
	if expired > 0 {
		log.Printf("sweeper: expired %d of %d lapsed reservations", expired, len(lapsed))
	}
}

// Sweep runs a single cycle synchronously.
func (s *Sweeper) Sweep(ctx context.Context) { s.sweep(ctx) }
