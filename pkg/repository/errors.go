package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
)

const (
	pgDuplicateKeyCode = "23505"

	// SQLITE_CONSTRAINT_PRIMARYKEY and SQLITE_CONSTRAINT_UNIQUE extended result codes.
	sqlitePrimaryKeyCode = 1555
	sqliteUniqueCode     = 2067
)

// MapError translates database errors to domain errors.
// It maps sql.ErrNoRows to notFoundErr and unique violations (PostgreSQL 23505,
// SQLite primary key or unique constraint) to duplicateErr. Other errors are
// returned unchanged.
func MapError(err error, notFoundErr, duplicateErr error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}

	if IsDuplicate(err) {
		return duplicateErr
	}

	return err
}

// IsDuplicate reports whether err is a unique constraint violation.
func IsDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDuplicateKeyCode
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqliteUniqueCode || code == sqlitePrimaryKeyCode
	}

	return false
}
