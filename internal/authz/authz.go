// Package authz carries the already-authenticated caller identity and the
// attribute/role checks the engine performs. Authentication lives elsewhere.
package authz

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
)

// ErrForbidden is returned when the caller may not perform the operation.
var ErrForbidden = errors.New("forbidden")

// Caller is the identity supplied by the auth collaborator.
type Caller struct {
	ID   uuid.UUID
	Role string
}

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// RequireAdmin returns ErrForbidden unless c is an admin.
func RequireAdmin(c Caller) error {
	if c.ID == uuid.Nil || !c.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// RequireSelf returns ErrForbidden unless c is the given account.
func RequireSelf(c Caller, accountID uuid.UUID) error {
	if c.ID == uuid.Nil || c.ID != accountID {
		return ErrForbidden
	}
	return nil
}

type contextKey struct{}

// WithCaller returns ctx carrying c.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// CallerFromCtx returns the caller stored by the auth middleware.
func CallerFromCtx(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(contextKey{}).(Caller)
	return c, ok
}
