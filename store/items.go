package store

import (
	"context"
	"fmt"
	"strings"

	"clothstock/ledger"
)

type Item struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	SKU        string    `db:"sku" json:"sku"`
	CategoryID *int64    `db:"category_id" json:"category_id"`
	BasePrice  *int64    `db:"base_price" json:"base_price"`
	Size       *string   `db:"size" json:"size"`
	Color      *string   `db:"color" json:"color"`
	Material   *string   `db:"material" json:"material"`
	Note       *string   `db:"note" json:"note"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  Timestamp `db:"created_at" json:"created_at"`
	UpdatedAt  Timestamp `db:"updated_at" json:"updated_at"`
}

// ItemRow is an item as shown in the catalog, with its derived stock.
type ItemRow struct {
	Item
	CategoryName *string `db:"category_name" json:"category_name"`
	Stock        int64   `db:"stock" json:"stock"`
}

const itemSelectCols = `i.id, i.name, i.sku, i.category_id, i.base_price, i.size, i.color, i.material, i.note, i.is_active, i.created_at, i.updated_at`

// stockExpr aggregates the signed movement quantities joined as m. It
// applies the same rule as ledger.Delta, so unknown types count as zero.
var stockExpr = fmt.Sprintf(`COALESCE(SUM(CASE m.movement_type WHEN '%s' THEN m.quantity WHEN '%s' THEN -m.quantity WHEN '%s' THEN m.quantity ELSE 0 END), 0)`,
	ledger.In, ledger.Out, ledger.Adjust)

// ItemFilter narrows ListItems. Zero value lists everything.
type ItemFilter struct {
	ID         *int64
	CategoryID *int64
	ActiveOnly bool
}

func (f ItemFilter) where() (string, []any) {
	var preds []string
	var args []any
	if f.ID != nil {
		preds = append(preds, "i.id = ?")
		args = append(args, *f.ID)
	}
	if f.CategoryID != nil {
		preds = append(preds, "i.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.ActiveOnly {
		preds = append(preds, "i.is_active = ?")
		args = append(args, true)
	}
	if len(preds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(preds, " AND "), args
}

func (db *DB) ListItems(ctx context.Context, f ItemFilter) ([]ItemRow, error) {
	where, args := f.where()
	q := `SELECT ` + itemSelectCols + `, c.name AS category_name, ` + stockExpr + ` AS stock
FROM items i
LEFT JOIN categories c ON c.id = i.category_id
LEFT JOIN stock_movements m ON m.item_id = i.id` + where + `
GROUP BY ` + itemSelectCols + `, c.name
ORDER BY i.id DESC`
	var rows []ItemRow
	if err := db.SelectContext(ctx, &rows, db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return rows, nil
}

func (db *DB) GetItem(ctx context.Context, id int64) (*Item, error) {
	var it Item
	err := db.GetContext(ctx, &it, db.Rebind(`SELECT `+itemSelectCols+` FROM items i WHERE i.id=?`), id)
	if err != nil {
		return nil, notFound(err)
	}
	return &it, nil
}

// ItemStock is the aggregate form of the ledger balance for one item.
func (db *DB) ItemStock(ctx context.Context, id int64) (int64, error) {
	var stock int64
	err := db.GetContext(ctx, &stock, db.Rebind(`SELECT `+stockExpr+` FROM items i
LEFT JOIN stock_movements m ON m.item_id = i.id
WHERE i.id = ?
GROUP BY i.id`), id)
	if err != nil {
		return 0, notFound(err)
	}
	return stock, nil
}

func (tx *Tx) InsertItem(ctx context.Context, it *Item) error {
	if err := tx.requireRef(ctx, "categories", "category_id", it.CategoryID); err != nil {
		return err
	}
	err := tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO items (name, sku, category_id, base_price, size, color, material, note, is_active)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id, created_at, updated_at`),
		it.Name, it.SKU, it.CategoryID, it.BasePrice, it.Size, it.Color, it.Material, it.Note, it.IsActive).
		Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (tx *Tx) UpdateItem(ctx context.Context, it *Item) error {
	if err := tx.requireRef(ctx, "categories", "category_id", it.CategoryID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE items SET name=?, sku=?, category_id=?, base_price=?, size=?, color=?, material=?, note=?, is_active=?, updated_at=`+tx.dialect.Now()+` WHERE id=?`),
		it.Name, it.SKU, it.CategoryID, it.BasePrice, it.Size, it.Color, it.Material, it.Note, it.IsActive, it.ID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return requireAffected(res)
}
