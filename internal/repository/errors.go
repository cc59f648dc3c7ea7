package repository

import (
	"context"
	"database/sql"
	"errors"
	"net"
)

var (
	// ErrNotFound is returned when a lookup by key matches no row.
	ErrNotFound = errors.New("not found")

	// ErrTimeout is returned when a store call exceeds its deadline. It is a
	// distinct class from other failures so callers can tell a slow store
	// from a broken one.
	ErrTimeout = errors.New("record store timeout")

	// ErrUnavailable is returned when the store cannot be reached at all.
	ErrUnavailable = errors.New("record store unavailable")
)

// Classify maps low-level driver and context errors onto the repository
// sentinels, keeping the original error in the chain.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrTimeout), errors.Is(err, ErrUnavailable):
		return err
	case errors.Is(err, sql.ErrNoRows):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Join(ErrTimeout, err)
	case errors.Is(err, sql.ErrConnDone):
		return errors.Join(ErrUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return errors.Join(ErrTimeout, err)
		}
		return errors.Join(ErrUnavailable, err)
	}
	return err
}
