package database

import (
	"context"
	"database/sql"
	"strings"
)

// EnsureSchema creates the two reservation-engine tables when they do not
// exist yet.  The (item_id, status) index backs per-item arbitration
// queries and (status, expires_at) backs the sweep query.  Safe to run on
// every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stock_items (
			id         VARCHAR(64)  NOT NULL,
			shop_id    VARCHAR(64)  NOT NULL,
			total      INT          NOT NULL DEFAULT 0,
			held       INT          NOT NULL DEFAULT 0,
			updated_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			KEY idx_stock_items_shop (shop_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS reservations (
			id            VARCHAR(64)  NOT NULL,
			item_id       VARCHAR(64)  NOT NULL,
			requester_id  VARCHAR(64)  NOT NULL,
			shop_id       VARCHAR(64)  NOT NULL,
			quantity      INT          NOT NULL,
			status        VARCHAR(16)  NOT NULL,
			code          VARCHAR(32)  NOT NULL,
			created_at    DATETIME     NOT NULL,
			expires_at    DATETIME     NOT NULL,
			validated_at  DATETIME     NULL,
			picked_up_at  DATETIME     NULL,
			cancelled_at  DATETIME     NULL,
			cancel_reason VARCHAR(255) NULL,
			PRIMARY KEY (id),
			UNIQUE KEY idx_reservations_code (code),
			KEY idx_reservations_item_status (item_id, status),
			KEY idx_reservations_status_expiry (status, expires_at),
			KEY idx_reservations_requester (requester_id, created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, strings.TrimSpace(stmt)); err != nil {
			return err
		}
	}
	return nil
}
