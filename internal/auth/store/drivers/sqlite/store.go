// Package sqlite is the default store driver, backed by the pure-Go
// modernc.org/sqlite engine.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/wealthstudio/studio-auth/internal/auth/store/drivers/sqlstore"
)

// Dialect is the SQLite flavour of the shared queries. It needs no LockUsers:
// every write transaction already holds the database lock from BEGIN.
var Dialect = sqlstore.Dialect{
	Name:              "sqlite",
	IsUniqueViolation: isUniqueViolation,
}

// NewStore opens (creating if needed) the database at path. ":memory:" gives
// a private in-memory database pinned to a single connection.
//
// Write transactions take the lock up front (_txlock=immediate) and waiters
// retry for up to five seconds, so concurrent redemptions serialize instead
// of failing with SQLITE_BUSY.
func NewStore(path string) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	return sqlstore.New(db, Dialect, applyMigrations), nil
}

func dsn(path string) string {
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	if path == ":memory:" {
		return "file::memory:?" + pragmas
	}
	if strings.Contains(path, "?") {
		return path + "&" + pragmas
	}
	return "file:" + path + "?_pragma=journal_mode(WAL)&" + pragmas
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
