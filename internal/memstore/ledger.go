// Package memstore provides in-memory implementations of the engine's
// storage interfaces.  It backs local development (STORE_DRIVER=memory)
// and the test suite; production deployments use the MySQL repositories.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/patriziopezzilli/tcgarena-reservation/internal/engine"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/model"
)

// Ledger is an in-memory stock ledger.  A single mutex guards the item
// map; every mutating method is one atomic unit of work under it, which
// satisfies the per-item linearizability contract trivially.
type Ledger struct {
	mu    sync.RWMutex
	items map[string]*model.StockItem
}

// NewLedger returns an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{items: make(map[string]*model.StockItem)}
}

// TryHold checks total-held >= qty and debits the hold in one step.
func (l *Ledger) TryHold(_ context.Context, itemID string, qty int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[itemID]
	if !ok {
		return false, engine.ErrNotFound
	}
	if it.Total-it.Held < qty {
		return false, nil
	}
	it.Held += qty
	it.UpdatedAt = time.Now().UTC()
	return true, nil
}

// Release gives qty units of held stock back, clamped at zero.
func (l *Ledger) Release(_ context.Context, itemID string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[itemID]
	if !ok {
		return engine.ErrNotFound
	}
	it.Held -= qty
	if it.Held < 0 {
		it.Held = 0
	}
	it.UpdatedAt = time.Now().UTC()
	return nil
}

// Consume removes qty units from both total and held.
func (l *Ledger) Consume(_ context.Context, itemID string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[itemID]
	if !ok {
		return engine.ErrNotFound
	}
	it.Total -= qty
	it.Held -= qty
	if it.Total < 0 {
		it.Total = 0
	}
	if it.Held < 0 {
		it.Held = 0
	}
	it.UpdatedAt = time.Now().UTC()
	return nil
}

// Get returns a copy of the item so callers cannot mutate ledger state.
func (l *Ledger) Get(_ context.Context, itemID string) (*model.StockItem, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	it, ok := l.items[itemID]
	if !ok {
		return nil, engine.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

// Upsert creates or replaces an item's merchant-controlled fields.  The
// engine-controlled held counter is preserved on update.
func (l *Ledger) Upsert(_ context.Context, item *model.StockItem) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *item
	if existing, ok := l.items[item.ID]; ok {
		cp.Held = existing.Held
	}
	cp.UpdatedAt = time.Now().UTC()
	l.items[item.ID] = &cp
	return nil
}
