package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"kanri/internal/core"

	_ "modernc.org/sqlite"
)

// Repository owns the receipts/items schema. It is a single logical writer:
// callers must not invoke InsertReceipt concurrently against one handle.
type Repository struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at dbPath and runs the
// idempotent schema initialization.
func Open(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertReceipt writes one receipt and all of its line items in a single
// transaction. Either everything commits or nothing does; any failure rolls
// back fully and is reported as ErrPersistenceFailed. The returned ID is the
// database-assigned receipt identity.
func (r *Repository) InsertReceipt(ctx context.Context, receipt core.Receipt, items []core.LineItem) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %v", core.ErrPersistenceFailed, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO receipts (store, genre, datetime, total) VALUES (?, ?, ?, ?)`,
		receipt.Store, receipt.Genre, receipt.Datetime, receipt.Total)
	if err != nil {
		return 0, fmt.Errorf("%w: insert receipt: %v", core.ErrPersistenceFailed, err)
	}

	receiptID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: receipt id: %v", core.ErrPersistenceFailed, err)
	}

	for _, item := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO items (receipt_id, name, price) VALUES (?, ?, ?)`,
			receiptID, item.Name, item.Price)
		if err != nil {
			return 0, fmt.Errorf("%w: insert item %q: %v", core.ErrPersistenceFailed, item.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", core.ErrPersistenceFailed, err)
	}

	slog.InfoContext(ctx, "Receipt saved",
		"receipt_id", receiptID,
		"store", receipt.Store,
		"total", receipt.Total,
		"item_count", len(items))

	return receiptID, nil
}

// GetReceipt returns one receipt with its line items.
func (r *Repository) GetReceipt(ctx context.Context, id int64) (core.Receipt, []core.LineItem, error) {
	var receipt core.Receipt
	err := r.db.QueryRowContext(ctx,
		`SELECT id, store, genre, datetime, total FROM receipts WHERE id = ?`, id).
		Scan(&receipt.ID, &receipt.Store, &receipt.Genre, &receipt.Datetime, &receipt.Total)
	if err != nil {
		return core.Receipt{}, nil, fmt.Errorf("get receipt %d: %w", id, err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, receipt_id, name, price FROM items WHERE receipt_id = ? ORDER BY id`, id)
	if err != nil {
		return core.Receipt{}, nil, fmt.Errorf("get items for receipt %d: %w", id, err)
	}
	defer rows.Close()

	var items []core.LineItem
	for rows.Next() {
		var item core.LineItem
		if err := rows.Scan(&item.ID, &item.ReceiptID, &item.Name, &item.Price); err != nil {
			return core.Receipt{}, nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return core.Receipt{}, nil, fmt.Errorf("iterate items: %w", err)
	}

	return receipt, items, nil
}

// ListReceipts returns every receipt ordered by transaction timestamp.
func (r *Repository) ListReceipts(ctx context.Context) ([]core.Receipt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, store, genre, datetime, total FROM receipts ORDER BY datetime, id`)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	var receipts []core.Receipt
	for rows.Next() {
		var receipt core.Receipt
		if err := rows.Scan(&receipt.ID, &receipt.Store, &receipt.Genre, &receipt.Datetime, &receipt.Total); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		receipts = append(receipts, receipt)
	}
	return receipts, rows.Err()
}

// ListItems returns every line item ordered by receipt.
func (r *Repository) ListItems(ctx context.Context) ([]core.LineItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, receipt_id, name, price FROM items ORDER BY receipt_id, id`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []core.LineItem
	for rows.Next() {
		var item core.LineItem
		if err := rows.Scan(&item.ID, &item.ReceiptID, &item.Name, &item.Price); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
