package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"faqpage/internal/handle"
)

var (
	// ErrNotFound covers both "does not exist" and "belongs to someone else".
	ErrNotFound = errors.New("not found")
	// ErrConflict means a concurrent write changed rows this transaction depended on.
	ErrConflict = errors.New("concurrent modification")
)

const (
	sqlStateUniqueViolation     = "23505"
	sqlStateSerializationFailed = "40001"
	sqlStateDeadlockDetected    = "40P01"

	handleIndexName = "users_handle_lower_key"
)

// translate maps driver errors onto the package's sentinel errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case sqlStateSerializationFailed, sqlStateDeadlockDetected:
		return errors.Join(ErrConflict, err)
	case sqlStateUniqueViolation:
		if pgErr.ConstraintName == handleIndexName {
			return errors.Join(handle.ErrTaken, err)
		}
	}
	return err
}
