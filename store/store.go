package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"clothstock/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInUse is returned when a delete is refused because other rows
	// still reference the target.
	ErrInUse = errors.New("in use")
	// ErrMissingReference is returned when a write points at a row that
	// does not exist.
	ErrMissingReference = errors.New("referenced row does not exist")
)

type DB struct {
	*sqlx.DB
	dialect Dialect
	driver  string
}

func Open(cfg *config.DatabaseConfig) (*DB, error) {
	switch cfg.Driver {
	case "sqlite":
		return openSQLite(cfg.SQLite.Path)
	case "postgres":
		return openPostgres(&cfg.Postgres)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func openSQLite(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	sqlDB, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return newDB(sqlDB, "sqlite")
}

func openPostgres(cfg *config.PostgresConfig) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode)
	sqlDB, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return newDB(sqlDB, "postgres")
}

func newDB(sqlDB *sqlx.DB, driver string) (*DB, error) {
	dialect, err := dialectFor(driver)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	db := &DB{DB: sqlDB, dialect: dialect, driver: driver}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate %s: %w", driver, err)
	}
	return db, nil
}

func (db *DB) Dialect() Dialect { return db.dialect }
func (db *DB) Driver() string   { return db.driver }

func (db *DB) migrate() error {
	var schema string
	switch db.driver {
	case "sqlite":
		schema = schemaSQLite
	case "postgres":
		schema = schemaPostgres
	default:
		return fmt.Errorf("no schema for driver: %s", db.driver)
	}
	_, err := db.Exec(schema)
	return err
}

// Tx is a request-scoped transaction. Write operations are only available
// on Tx so that checks and mutations share one atomic unit.
type Tx struct {
	*sqlx.Tx
	dialect Dialect
}

// WithTx runs fn in a transaction. It commits when fn returns nil and rolls
// back on error or panic.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	tx := &Tx{Tx: sqlTx, dialect: db.dialect}
	defer func() {
		if p := recover(); p != nil {
			sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			sqlTx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// RefError reports a foreign key value with no matching row.
type RefError struct {
	Field string
	ID    int64
}

func (e *RefError) Error() string {
	return fmt.Sprintf("%s %d does not exist", e.Field, e.ID)
}

func (e *RefError) Unwrap() error { return ErrMissingReference }

// exists reports whether table has a row with the given id. table is
// always a constant from this package.
func (tx *Tx) exists(ctx context.Context, table string, id int64) (bool, error) {
	var one int
	err := tx.GetContext(ctx, &one, tx.Rebind(fmt.Sprintf(`SELECT 1 FROM %s WHERE id=?`, table)), id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (tx *Tx) requireRef(ctx context.Context, table, field string, id *int64) error {
	if id == nil {
		return nil
	}
	ok, err := tx.exists(ctx, table, *id)
	if err != nil {
		return fmt.Errorf("check %s: %w", field, err)
	}
	if !ok {
		return &RefError{Field: field, ID: *id}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// requireAffected turns an UPDATE or DELETE that matched nothing into
// ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
