package store

import (
	"context"
	"fmt"

	"clothstock/ledger"
)

type StockMovement struct {
	ID           int64               `db:"id" json:"id"`
	ItemID       int64               `db:"item_id" json:"item_id"`
	Type         ledger.MovementType `db:"movement_type" json:"movement_type"`
	Quantity     int64               `db:"quantity" json:"quantity"`
	SupplierID   *int64              `db:"supplier_id" json:"supplier_id"`
	Memo         *string             `db:"memo" json:"memo"`
	CreatedAt    Timestamp           `db:"created_at" json:"created_at"`
	ItemName     string              `db:"item_name" json:"item_name,omitempty"`
	SupplierName *string             `db:"supplier_name" json:"supplier_name,omitempty"`
}

// LedgerKey extracts the fields the ledger orders and sums by.
func (m StockMovement) LedgerKey() ledger.Movement {
	return ledger.Movement{ID: m.ID, Type: m.Type, Quantity: m.Quantity, CreatedAt: m.CreatedAt.Time}
}

const movementSelect = `SELECT m.id, m.item_id, m.movement_type, m.quantity, m.supplier_id, m.memo, m.created_at,
i.name AS item_name, s.name AS supplier_name
FROM stock_movements m
JOIN items i ON i.id = m.item_id
LEFT JOIN suppliers s ON s.id = m.supplier_id`

// ListItemMovements returns every movement of one item in ledger order.
func (db *DB) ListItemMovements(ctx context.Context, itemID int64) ([]StockMovement, error) {
	var ms []StockMovement
	err := db.SelectContext(ctx, &ms, db.Rebind(movementSelect+` WHERE m.item_id = ? ORDER BY m.created_at, m.id`), itemID)
	if err != nil {
		return nil, fmt.Errorf("list item movements: %w", err)
	}
	return ms, nil
}

// ItemLedger loads an item's movements as a ledger.
func (db *DB) ItemLedger(ctx context.Context, itemID int64) (*ledger.Ledger[StockMovement], error) {
	ms, err := db.ListItemMovements(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return ledger.New(ms, StockMovement.LedgerKey), nil
}

// ListMovements returns the most recent movements across all items,
// newest first. limit <= 0 means no limit.
func (db *DB) ListMovements(ctx context.Context, limit int) ([]StockMovement, error) {
	q := movementSelect + ` ORDER BY m.created_at DESC, m.id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	var ms []StockMovement
	if err := db.SelectContext(ctx, &ms, db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return ms, nil
}

// InsertMovement appends a movement after checking that the item and the
// optional supplier exist.
func (tx *Tx) InsertMovement(ctx context.Context, m *StockMovement) error {
	if m.Quantity <= 0 {
		return fmt.Errorf("insert movement: quantity must be positive, got %d", m.Quantity)
	}
	if err := tx.requireRef(ctx, "items", "item_id", &m.ItemID); err != nil {
		return err
	}
	if err := tx.requireRef(ctx, "suppliers", "supplier_id", m.SupplierID); err != nil {
		return err
	}
	err := tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO stock_movements (item_id, movement_type, quantity, supplier_id, memo)
VALUES (?, ?, ?, ?, ?) RETURNING id, created_at`),
		m.ItemID, string(m.Type), m.Quantity, m.SupplierID, m.Memo).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}
