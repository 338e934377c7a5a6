package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// ParseRole maps a stored or submitted role to a known value. Anything
// other than admin, including an empty value, is staff.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleStaff
}

type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	RawRole      *string   `db:"role"`
	CreatedAt    Timestamp `db:"created_at"`
}

func (u *User) Role() Role {
	if u.RawRole == nil {
		return RoleStaff
	}
	return ParseRole(*u.RawRole)
}

func (u *User) IsAdmin() bool { return u.Role() == RoleAdmin }

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := db.GetContext(ctx, &u, db.Rebind(`SELECT id, username, password_hash, role, created_at FROM users WHERE username=?`), username)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (db *DB) UserExists(ctx context.Context, username string) (bool, error) {
	var count int
	err := db.GetContext(ctx, &count, db.Rebind(`SELECT COUNT(*) FROM users WHERE username=?`), username)
	return count > 0, err
}

func (db *DB) CreateUser(ctx context.Context, username, passwordHash string, role Role) (int64, error) {
	var id int64
	err := db.GetContext(ctx, &id, db.Rebind(`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?) RETURNING id`),
		username, passwordHash, string(ParseRole(string(role))))
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// UpsertUser creates the user or replaces the password and role of an
// existing one. It reports whether a new row was created.
func (db *DB) UpsertUser(ctx context.Context, username, passwordHash string, role Role) (created bool, err error) {
	err = db.WithTx(ctx, func(tx *Tx) error {
		stored := string(ParseRole(string(role)))
		var id int64
		err := notFound(tx.GetContext(ctx, &id, tx.Rebind(`SELECT id FROM users WHERE username=?`+tx.dialect.LockRow()), username))
		switch {
		case errors.Is(err, ErrNotFound):
			created = true
			_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`),
				username, passwordHash, stored)
			return err
		case err != nil:
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET password_hash=?, role=? WHERE id=?`),
			passwordHash, stored, id)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("upsert user: %w", err)
	}
	return created, nil
}
