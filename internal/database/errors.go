package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("entity not found")
	// ErrDuplicate is returned when an insert violates a unique constraint
	ErrDuplicate = errors.New("entity already exists")
	// ErrStoreUnavailable is returned when the pool cannot reach the database
	ErrStoreUnavailable = errors.New("store unavailable")
)

// uniqueViolation is the SQLSTATE for unique_violation
const uniqueViolation = pq.ErrorCode("23505")

// dbErr maps driver errors onto the package sentinel errors while keeping the
// original error in the chain.
func dbErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == uniqueViolation {
			return errors.Join(ErrDuplicate, err)
		}
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &netErr) {
		return errors.Join(ErrStoreUnavailable, err)
	}

	return err
}
