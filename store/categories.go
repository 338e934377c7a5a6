package store

import (
	"context"
	"fmt"
)

type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	CreatedAt   Timestamp `db:"created_at" json:"created_at"`
}

const categorySelectCols = `id, name, description, created_at`

func (db *DB) ListCategories(ctx context.Context) ([]Category, error) {
	var cats []Category
	err := db.SelectContext(ctx, &cats, `SELECT `+categorySelectCols+` FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (db *DB) GetCategory(ctx context.Context, id int64) (*Category, error) {
	var c Category
	err := db.GetContext(ctx, &c, db.Rebind(`SELECT `+categorySelectCols+` FROM categories WHERE id=?`), id)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (tx *Tx) InsertCategory(ctx context.Context, c *Category) error {
	err := tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO categories (name, description) VALUES (?, ?) RETURNING id, created_at`),
		c.Name, c.Description).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (tx *Tx) UpdateCategory(ctx context.Context, c *Category) error {
	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE categories SET name=?, description=? WHERE id=?`),
		c.Name, c.Description, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireAffected(res)
}
