// Package storage defines the errors every repository implementation
// (Postgres and in-memory) reports, so services can tell business
// outcomes apart from infrastructure faults.
package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique constraint rejects an insert.
	ErrConflict = errors.New("unique constraint violated")

	// ErrStaleRow is returned when a conditional update (status or balance
	// guard) matched no rows.
	ErrStaleRow = errors.New("conditional update matched no rows")

	// ErrStorageFailure marks infrastructure faults: lost connections,
	// failed commits, driver errors.
	ErrStorageFailure = errors.New("storage failure")
)

// Wrap tags err as a storage failure for op. Storage sentinels and nil
// pass through untouched so callers can still branch on them.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrStaleRow) || errors.Is(err, ErrStorageFailure) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}

// IsFailure reports whether err is an infrastructure fault.
func IsFailure(err error) bool {
	return errors.Is(err, ErrStorageFailure)
}
