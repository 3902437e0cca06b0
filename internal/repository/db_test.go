package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/UncleVee2025/barter-trade-sub003/internal/storage"
)

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr("op", nil))
	assert.ErrorIs(t, mapErr("op", pgx.ErrNoRows), storage.ErrNotFound)

	dup := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "vouchers_code_key"}
	err := mapErr("vouchers.insert", dup)
	assert.ErrorIs(t, err, storage.ErrConflict)
	assert.Contains(t, err.Error(), "vouchers_code_key")

	err = mapErr("accounts.debit", &pgconn.PgError{Code: "23514"})
	assert.ErrorIs(t, err, storage.ErrStorageFailure)

	err = mapErr("accounts.get", errors.New("connection reset"))
	assert.True(t, storage.IsFailure(err))
}

func TestExpectOne(t *testing.T) {
	assert.NoError(t, expectOne(pgconn.NewCommandTag("UPDATE 1")))
	assert.ErrorIs(t, expectOne(pgconn.NewCommandTag("UPDATE 0")), storage.ErrStaleRow)
}
