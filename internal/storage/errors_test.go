package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("op", nil))

	for _, sentinel := range []error{ErrNotFound, ErrConflict, ErrStaleRow} {
		wrapped := Wrap("op", fmt.Errorf("ctx: %w", sentinel))
		assert.ErrorIs(t, wrapped, sentinel)
		assert.False(t, IsFailure(wrapped), "sentinel %v must not become a storage failure", sentinel)
	}

	cause := errors.New("connection reset by peer")
	wrapped := Wrap("accounts.lock", cause)
	assert.True(t, IsFailure(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "accounts.lock")

	// Wrapping twice keeps a single storage-failure marker.
	assert.Equal(t, wrapped, Wrap("outer", wrapped))
}
