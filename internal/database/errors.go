package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// SQLSTATE class 23 is "integrity constraint violation".
const pgIntegrityClass = "23"

// ConstraintName reports whether err is an integrity-constraint failure raised by
// the storage engine and, when the driver exposes it, the violated constraint.
func ConstraintName(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, pgIntegrityClass) {
		return pgErr.ConstraintName, true
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return "", true
	}

	// SQLite: "UNIQUE constraint failed: patron.email", "CHECK constraint failed: ..."
	msg := err.Error()
	if i := strings.Index(msg, "constraint failed"); i >= 0 {
		name := strings.TrimSpace(strings.TrimPrefix(msg[i+len("constraint failed"):], ":"))
		return name, true
	}
	return "", false
}

// IsNotFound reports whether err is GORM's record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
