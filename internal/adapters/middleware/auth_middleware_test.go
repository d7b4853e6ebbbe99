package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
)

// stubResolver accepts exactly one token.
type stubResolver struct {
	token    string
	identity *domain.Identity
}

func (s stubResolver) CurrentIdentity(_ context.Context, token string) (*domain.Identity, error) {
	if token != s.token {
		return nil, errors.New("invalid token")
	}
	return s.identity, nil
}

func newTestMiddleware(role domain.Role) *AuthMiddleware {
	return NewAuthMiddleware(stubResolver{
		token:    "good-token",
		identity: &domain.Identity{UID: "user-123", Email: "test@example.com", Role: role},
	})
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	if IdentityFrom(r.Context()) == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func TestRequireRole_NoAuthHeader(t *testing.T) {
	handler := newTestMiddleware(domain.RoleAdmin).RequireRole([]domain.Role{domain.RoleAdmin}, okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/notices", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRole_InvalidHeaderFormat(t *testing.T) {
	handler := newTestMiddleware(domain.RoleAdmin).RequireRole([]domain.Role{domain.RoleAdmin}, okHandler)

	for _, header := range []string{"InvalidFormat", "Basic good-token", "Bearer ", "Bearer a b"} {
		t.Run(header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/notices", nil)
			req.Header.Set("Authorization", header)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestRequireRole_InvalidToken(t *testing.T) {
	handler := newTestMiddleware(domain.RoleAdmin).RequireRole([]domain.Role{domain.RoleAdmin}, okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/notices", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRole_WrongRole(t *testing.T) {
	handler := newTestMiddleware(domain.RoleResident).RequireRole([]domain.Role{domain.RoleAdmin}, okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/notices", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestRequireRole_ValidTokenAttachesIdentity(t *testing.T) {
	roles := []domain.Role{domain.RoleAdmin, domain.RoleResident}
	handler := newTestMiddleware(domain.RoleResident).RequireRole(roles, okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/records/outpass", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_QueryTokenOnlyForGet(t *testing.T) {
	handler := newTestMiddleware(domain.RoleResident).RequireRole([]domain.Role{domain.RoleResident}, okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/stream/outpass?access_token=good-token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/records/outpass?access_token=good-token", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("POST: expected 401, got %d", rec.Code)
	}
}

func TestOptional(t *testing.T) {
	handler := newTestMiddleware(domain.RoleResident).Optional(okHandler)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"anonymous", "", http.StatusNoContent},
		{"valid token", "Bearer good-token", http.StatusOK},
		{"invalid token", "Bearer forged", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
