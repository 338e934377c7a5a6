package store

import (
	"context"
	"errors"
	"fmt"
)

// InUseError is returned by the guarded deletes when the target is still
// referenced. It matches ErrInUse.
type InUseError struct {
	Entity     string
	ID         int64
	References int
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("%s %d is referenced by %d row(s)", e.Entity, e.ID, e.References)
}

func (e *InUseError) Unwrap() error { return ErrInUse }

// guard describes one parent table and the rows that may point at it.
type guard struct {
	entity string
	table  string
	refs   string // counting query, one ? for the parent id
}

var (
	itemGuard = guard{
		entity: "item",
		table:  "items",
		refs:   `SELECT COUNT(*) FROM stock_movements WHERE item_id = ?`,
	}
	supplierGuard = guard{
		entity: "supplier",
		table:  "suppliers",
		refs:   `SELECT COUNT(*) FROM stock_movements WHERE supplier_id = ?`,
	}
	categoryGuard = guard{
		entity: "category",
		table:  "categories",
		refs:   `SELECT COUNT(*) FROM items WHERE category_id = ?`,
	}
)

func (tx *Tx) countRefs(ctx context.Context, g guard, id int64) (int, error) {
	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind(g.refs), id); err != nil {
		return 0, fmt.Errorf("count %s references: %w", g.entity, err)
	}
	return n, nil
}

// CanDeleteItem reports how many movements reference the item. The item
// may be deleted only when the count is zero.
func (tx *Tx) CanDeleteItem(ctx context.Context, id int64) (bool, int, error) {
	n, err := tx.countRefs(ctx, itemGuard, id)
	return err == nil && n == 0, n, err
}

func (tx *Tx) CanDeleteSupplier(ctx context.Context, id int64) (bool, int, error) {
	n, err := tx.countRefs(ctx, supplierGuard, id)
	return err == nil && n == 0, n, err
}

func (tx *Tx) CanDeleteCategory(ctx context.Context, id int64) (bool, int, error) {
	n, err := tx.countRefs(ctx, categoryGuard, id)
	return err == nil && n == 0, n, err
}

// guardedDelete locks the parent row, counts its references and deletes
// it, all in one transaction. A concurrent insert of a referencing row
// either commits first and is counted, or waits on the lock and then
// fails its foreign key check.
func (db *DB) guardedDelete(ctx context.Context, g guard, id int64) error {
	return db.WithTx(ctx, func(tx *Tx) error {
		var locked int64
		err := tx.GetContext(ctx, &locked, tx.Rebind(`SELECT id FROM `+g.table+` WHERE id = ?`+tx.dialect.LockRow()), id)
		if err != nil {
			return notFound(err)
		}
		n, err := tx.countRefs(ctx, g, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return &InUseError{Entity: g.entity, ID: id, References: n}
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+g.table+` WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete %s: %w", g.entity, err)
		}
		return requireAffected(res)
	})
}

func (db *DB) DeleteItem(ctx context.Context, id int64) error {
	return db.guardedDelete(ctx, itemGuard, id)
}

func (db *DB) DeleteSupplier(ctx context.Context, id int64) error {
	return db.guardedDelete(ctx, supplierGuard, id)
}

func (db *DB) DeleteCategory(ctx context.Context, id int64) error {
	return db.guardedDelete(ctx, categoryGuard, id)
}

// IsInUse reports whether err is a delete refusal and returns it.
func IsInUse(err error) (*InUseError, bool) {
	var e *InUseError
	ok := errors.As(err, &e)
	return e, ok
}
