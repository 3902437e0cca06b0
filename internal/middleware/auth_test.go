package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/UncleVee2025/barter-trade-sub003/internal/authz"
	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubValidator struct {
	caller authz.Caller
	err    error
	seen   string
}

func (s *stubValidator) ValidateToken(_ context.Context, token string) (authz.Caller, error) {
	s.seen = token
	return s.caller, s.err
}

// okHandler writes 200 and the caller id (for assertions).
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if c, ok := authz.CallerFromCtx(r.Context()); ok {
		w.Write([]byte(c.ID.String()))
	}
})

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestBearerAuth_ValidToken(t *testing.T) {
	caller := authz.Caller{ID: uuid.New(), Role: models.RoleUser}
	v := &stubValidator{caller: caller}
	mw := BearerAuth(v)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if v.seen != "good-token" {
		t.Errorf("expected token %q to be validated, got %q", "good-token", v.seen)
	}
	if body := rec.Body.String(); body != caller.ID.String() {
		t.Errorf("expected caller id %q in body, got %q", caller.ID, body)
	}
}

func TestBearerAuth_MissingHeader(t *testing.T) {
	mw := BearerAuth(&stubValidator{})(okHandler)

	cases := []struct {
		name   string
		header string
	}{
		{"no header at all", ""},
		{"empty bearer", "Bearer "},
		{"wrong scheme", "Basic abc123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestBearerAuth_InvalidToken(t *testing.T) {
	mw := BearerAuth(&stubValidator{err: errors.New("expired")})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminOnly(t *testing.T) {
	cases := []struct {
		name   string
		caller *authz.Caller
		want   int
	}{
		{"no caller", nil, http.StatusUnauthorized},
		{"user", &authz.Caller{ID: uuid.New(), Role: models.RoleUser}, http.StatusForbidden},
		{"admin", &authz.Caller{ID: uuid.New(), Role: models.RoleAdmin}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.caller != nil {
				req = req.WithContext(authz.WithCaller(req.Context(), *tc.caller))
			}
			rec := httptest.NewRecorder()
			AdminOnly(okHandler).ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
