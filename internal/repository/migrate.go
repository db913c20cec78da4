package repository

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id               TEXT PRIMARY KEY,
		content_hash     TEXT NOT NULL UNIQUE,
		source_path      TEXT NOT NULL,
		source_format    TEXT NOT NULL,
		file_size        BIGINT NOT NULL DEFAULT 0,
		status           TEXT NOT NULL,
		validation_error TEXT NOT NULL DEFAULT '',
		raw_text         TEXT NOT NULL DEFAULT '',

		document_title        TEXT NOT NULL DEFAULT '',
		invoice_number        TEXT NOT NULL DEFAULT '',
		invoice_date          TEXT NOT NULL DEFAULT '',
		work_order_number     TEXT NOT NULL DEFAULT '',
		purchase_order_number TEXT NOT NULL DEFAULT '',
		supplier_name         TEXT NOT NULL DEFAULT '',
		supplier_address      TEXT NOT NULL DEFAULT '',
		supplier_email        TEXT NOT NULL DEFAULT '',
		supplier_bank_details TEXT NOT NULL DEFAULT '',
		buyer_name            TEXT NOT NULL DEFAULT '',
		buyer_address         TEXT NOT NULL DEFAULT '',
		nepcs_company_name    TEXT NOT NULL DEFAULT '',
		nepcs_address         TEXT NOT NULL DEFAULT '',
		project_name          TEXT NOT NULL DEFAULT '',
		subtotal              DOUBLE PRECISION NOT NULL DEFAULT 0,
		tax_amount            DOUBLE PRECISION NOT NULL DEFAULT 0,
		vat_amount            DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_amount          DOUBLE PRECISION NOT NULL DEFAULT 0,
		currency              TEXT NOT NULL DEFAULT 'USD',
		confidence            TEXT NOT NULL DEFAULT '{}',

		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS documents_created_at_idx ON documents (created_at)`,
	`CREATE TABLE IF NOT EXISTS line_items (
		document_id TEXT NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
		line_no     INTEGER NOT NULL,
		sl_no       INTEGER NOT NULL,
		name        TEXT NOT NULL,
		quantity    INTEGER NOT NULL,
		unit_price  DOUBLE PRECISION NOT NULL,
		amount      DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (document_id, line_no)
	)`,
}

// Migrate creates the schema if it does not exist. It is safe to run on every start.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.SQL.ExecContext(ctx, stmt); err != nil {
			db.logger.Error("migration failed", "step", i, "error", err)
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	db.logger.Info("database schema up to date", "dialect", db.Dialect)
	return nil
}
