package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/patriziopezzilli/tcgarena-reservation/internal/engine"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/model"
)

// mysqlDupEntry is the MySQL error number for a unique-key violation.
const mysqlDupEntry = 1062

// ReservationStoreRepo is the MySQL reservation store.  Rows are inserted
// once and updated in place on transitions; nothing here ever deletes a
// row, terminal reservations stay behind for audit and history.  The
// (item_id, status) and (status, expires_at) indexes back the arbitration
// and sweep queries respectively.
type ReservationStoreRepo struct {
	db *sql.DB
}

// NewReservationStoreRepo returns a store bound to the provided database.
func NewReservationStoreRepo(db *sql.DB) *ReservationStoreRepo {
	return &ReservationStoreRepo{db: db}
}

const reservationColumns = `id, item_id, requester_id, shop_id, quantity, status, code,
	created_at, expires_at, validated_at, picked_up_at, cancelled_at, cancel_reason`

// Create inserts a new reservation row.  The unique index on code turns a
// generation collision into ErrCodeConflict for the engine to retry.
func (r *ReservationStoreRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
	           (id, item_id, requester_id, shop_id, quantity, status, code, created_at, expires_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		res.ID, res.ItemID, res.RequesterID, res.ShopID, res.Quantity,
		string(res.Status), res.Code, res.CreatedAt.UTC(), res.ExpiresAt.UTC(),
	)
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDupEntry {
		return engine.ErrCodeConflict
	}
	return err
}

// Get returns one reservation by identifier.
func (r *ReservationStoreRepo) Get(ctx context.Context, id string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	return res, err
}

// Update persists the mutable transition fields of an existing row.
func (r *ReservationStoreRepo) Update(ctx context.Context, res *model.Reservation) error {
	const q = `UPDATE reservations
	           SET status = ?, validated_at = ?, picked_up_at = ?, cancelled_at = ?, cancel_reason = ?
	           WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q,
		string(res.Status), nullTime(res.ValidatedAt), nullTime(res.PickedUpAt),
		nullTime(res.CancelledAt), nullString(res.CancelReason), res.ID,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Zero rows can also mean the values were already identical; only
		// report ErrNotFound when the row is truly absent.
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, res.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return engine.ErrNotFound
		}
		return err
	}
	return nil
}

// ListExpired returns up to limit lapsed PENDING reservations, oldest
// expiry first.  Uses the (status, expires_at) index.
func (r *ReservationStoreRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
	           FROM reservations
	           WHERE status = ? AND expires_at < ?
	           ORDER BY expires_at ASC
	           LIMIT ?`
	return r.queryReservations(ctx, q, string(model.StatusPending), now.UTC(), limit)
}

// ListExpiredByItem returns every lapsed PENDING reservation for one item.
// Uses the (item_id, status) index.
func (r *ReservationStoreRepo) ListExpiredByItem(ctx context.Context, itemID string, now time.Time) ([]*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
	           FROM reservations
	           WHERE item_id = ? AND status = ? AND expires_at < ?`
	return r.queryReservations(ctx, q, itemID, string(model.StatusPending), now.UTC())
}

// ListByRequester returns the requester's reservations, newest first.
func (r *ReservationStoreRepo) ListByRequester(ctx context.Context, requesterID string) ([]*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
	           FROM reservations
	           WHERE requester_id = ?
	           ORDER BY created_at DESC`
	return r.queryReservations(ctx, q, requesterID)
}

func (r *ReservationStoreRepo) queryReservations(ctx context.Context, q string, args ...interface{}) ([]*model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(sc rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	var status string
	var validatedAt, pickedUpAt, cancelledAt sql.NullTime
	var cancelReason sql.NullString
	err := sc.Scan(
		&res.ID, &res.ItemID, &res.RequesterID, &res.ShopID, &res.Quantity,
		&status, &res.Code, &res.CreatedAt, &res.ExpiresAt,
		&validatedAt, &pickedUpAt, &cancelledAt, &cancelReason,
	)
	if err != nil {
		return nil, err
	}
	res.Status = model.Status(status)
	res.CreatedAt = res.CreatedAt.UTC()
	res.ExpiresAt = res.ExpiresAt.UTC()
	res.ValidatedAt = timePtr(validatedAt)
	res.PickedUpAt = timePtr(pickedUpAt)
	res.CancelledAt = timePtr(cancelledAt)
	if cancelReason.Valid {
		reason := cancelReason.String
		res.CancelReason = &reason
	}
	return &res, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
