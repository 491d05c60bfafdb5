// Package repository contains the MySQL implementations of the engine's
// storage interfaces.  All timestamp columns are stored and compared in
// UTC; the DSN's parseTime/loc settings in internal/database keep scanned
// values consistent.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/patriziopezzilli/tcgarena-reservation/internal/engine"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/model"
)

// StockLedgerRepo is the MySQL stock ledger.  Arbitration is a single
// conditional UPDATE per operation, so the database row lock serializes
// concurrent holds on the same item regardless of how many service
// instances are running.
type StockLedgerRepo struct {
	db *sql.DB
}

// NewStockLedgerRepo returns a ledger bound to the provided database.
func NewStockLedgerRepo(db *sql.DB) *StockLedgerRepo { return &StockLedgerRepo{db: db} }

// TryHold debits the hold if and only if available stock covers qty, in
// one atomic statement.  A zero-row result is disambiguated: unknown item
// is ErrNotFound, known item with insufficient stock is (false, nil).
func (r *StockLedgerRepo) TryHold(ctx context.Context, itemID string, qty int) (bool, error) {
	const q = `UPDATE stock_items
	           SET held = held + ?, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND total - held >= ?`
	res, err := r.db.ExecContext(ctx, q, qty, itemID, qty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	if err := r.exists(ctx, itemID); err != nil {
		return false, err
	}
	return false, nil
}

// Release gives held stock back, clamped at zero so a misuse cannot drive
// the counter negative.
func (r *StockLedgerRepo) Release(ctx context.Context, itemID string, qty int) error {
	const q = `UPDATE stock_items
	           SET held = GREATEST(held - ?, 0), updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, qty, itemID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports zero affected rows when nothing changed (held was
		// already zero), so confirm the item actually exists.
		return r.exists(ctx, itemID)
	}
	return nil
}

// Consume removes qty from both total and held atomically.  The guard on
// both counters should always pass under correct engine usage.
func (r *StockLedgerRepo) Consume(ctx context.Context, itemID string, qty int) error {
	const q = `UPDATE stock_items
	           SET total = total - ?, held = held - ?, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND total >= ? AND held >= ?`
	res, err := r.db.ExecContext(ctx, q, qty, qty, itemID, qty, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if err := r.exists(ctx, itemID); err != nil {
			return err
		}
		return errors.New("consume exceeds recorded stock")
	}
	return nil
}

// Get returns the item's counters.
func (r *StockLedgerRepo) Get(ctx context.Context, itemID string) (*model.StockItem, error) {
	const q = `SELECT id, shop_id, total, held, updated_at FROM stock_items WHERE id = ?`
	var it model.StockItem
	var updated time.Time
	err := r.db.QueryRowContext(ctx, q, itemID).Scan(&it.ID, &it.ShopID, &it.Total, &it.Held, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	it.UpdatedAt = updated.UTC()
	return &it, nil
}

// Upsert creates or replaces the merchant-controlled fields of an item.
// The engine-controlled held counter is preserved on update.
func (r *StockLedgerRepo) Upsert(ctx context.Context, item *model.StockItem) error {
	const q = `INSERT INTO stock_items (id, shop_id, total, held)
	           VALUES (?, ?, ?, 0)
	           ON DUPLICATE KEY UPDATE shop_id = VALUES(shop_id), total = VALUES(total),
	                                   updated_at = UTC_TIMESTAMP()`
	_, err := r.db.ExecContext(ctx, q, item.ID, item.ShopID, item.Total)
	return err
}

func (r *StockLedgerRepo) exists(ctx context.Context, itemID string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM stock_items WHERE id = ?`, itemID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.ErrNotFound
	}
	return err
}
