// Package postgres is the store driver for multi-replica deployments, using
// pgx through database/sql.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/wealthstudio/studio-auth/internal/auth/store/drivers/sqlstore"
)

const (
	// uniqueViolation is the SQLSTATE for unique_violation.
	uniqueViolation = "23505"

	// userCreationLock is the pg_advisory_xact_lock key guarding
	// first-user creation.
	userCreationLock int64 = 0x5354_5544_494f
)

var Dialect = sqlstore.Dialect{
	Name:              "postgres",
	Rebind:            sqlstore.DollarRebind,
	IsUniqueViolation: isUniqueViolation,
	LockUsers:         lockUsers,
}

// lockUsers takes a transaction-scoped advisory lock. READ COMMITTED alone
// lets two transactions both observe an empty users table.
func lockUsers(ctx context.Context, db sqlstore.DBTX) error {
	_, err := db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, userCreationLock)
	return err
}

// Options tunes the connection pool. Zero values keep database/sql defaults.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewStore connects to the database at dsn (a postgres:// URL or key=value
// string) and verifies the connection.
func NewStore(ctx context.Context, dsn string, opts Options) (*sqlstore.Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	return sqlstore.New(db, Dialect, applyMigrations), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
