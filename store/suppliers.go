package store

import (
	"context"
	"fmt"
)

type Supplier struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Phone     *string   `db:"phone" json:"phone"`
	Email     *string   `db:"email" json:"email"`
	Address   *string   `db:"address" json:"address"`
	Note      *string   `db:"note" json:"note"`
	CreatedAt Timestamp `db:"created_at" json:"created_at"`
}

const supplierSelectCols = `id, name, phone, email, address, note, created_at`

func (db *DB) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var sups []Supplier
	err := db.SelectContext(ctx, &sups, `SELECT `+supplierSelectCols+` FROM suppliers ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return sups, nil
}

func (db *DB) GetSupplier(ctx context.Context, id int64) (*Supplier, error) {
	var s Supplier
	err := db.GetContext(ctx, &s, db.Rebind(`SELECT `+supplierSelectCols+` FROM suppliers WHERE id=?`), id)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (tx *Tx) InsertSupplier(ctx context.Context, s *Supplier) error {
	err := tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO suppliers (name, phone, email, address, note) VALUES (?, ?, ?, ?, ?) RETURNING id, created_at`),
		s.Name, s.Phone, s.Email, s.Address, s.Note).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

func (tx *Tx) UpdateSupplier(ctx context.Context, s *Supplier) error {
	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE suppliers SET name=?, phone=?, email=?, address=?, note=? WHERE id=?`),
		s.Name, s.Phone, s.Email, s.Address, s.Note, s.ID)
	if err != nil {
		return fmt.Errorf("update supplier: %w", err)
	}
	return requireAffected(res)
}
