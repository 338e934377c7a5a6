package store

import (
	"fmt"
	"time"
)

type Dialect interface {
	Now() string
	// LockRow is appended to a single-row SELECT to hold the row until the
	// transaction ends.
	LockRow() string
}

type sqliteDialect struct{}

func (sqliteDialect) Now() string { return "datetime('now','localtime')" }

// SQLite runs on one connection, so every transaction is already exclusive.
func (sqliteDialect) LockRow() string { return "" }

type postgresDialect struct{}

func (postgresDialect) Now() string     { return "NOW()" }
func (postgresDialect) LockRow() string { return " FOR UPDATE" }

// Timestamp scans the TEXT timestamps SQLite returns as well as the native
// values PostgreSQL returns.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case []byte:
		t.Time = parseTime(string(x))
	default:
		t.Time = parseTime(x)
	}
	return nil
}

func (t Timestamp) String() string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

// parseTime converts a scanned timestamp value to time.Time.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if t == "" {
			return time.Time{}
		}
		for _, layout := range []string{
			"2006-01-02 15:04:05",
			time.RFC3339,
			time.RFC3339Nano,
			"2006-01-02 15:04:05-07:00",
			"2006-01-02 15:04:05.999999999-07:00",
		} {
			if parsed, err := time.ParseInLocation(layout, t, time.Local); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}

func dialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite":
		return sqliteDialect{}, nil
	case "postgres":
		return postgresDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver: %s", driver)
}
