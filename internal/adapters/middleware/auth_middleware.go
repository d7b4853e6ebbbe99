package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
)

// IdentityResolver verifies a session token. ports.AuthService satisfies it.
type IdentityResolver interface {
	CurrentIdentity(ctx context.Context, token string) (*domain.Identity, error)
}

type AuthMiddleware struct {
	resolver IdentityResolver
}

func NewAuthMiddleware(resolver IdentityResolver) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
	}
}

type contextKey string

const IdentityKey contextKey = "identity"

// IdentityFrom returns the verified caller, or nil for anonymous requests.
func IdentityFrom(ctx context.Context) *domain.Identity {
	id, _ := ctx.Value(IdentityKey).(*domain.Identity)
	return id
}

func WithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// RequireRole rejects requests without a valid token whose role claim is one
// of roles.
func (m *AuthMiddleware) RequireRole(roles []domain.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			log.Printf("auth: missing or malformed authorization on %s", r.URL.Path)
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		identity, err := m.resolver.CurrentIdentity(r.Context(), token)
		if err != nil {
			log.Printf("auth: token rejected on %s: %v", r.URL.Path, err)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		allowed := false
		for _, role := range roles {
			if identity.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			log.Printf("auth: role mismatch on %s: required one of %v, got %s", r.URL.Path, roles, identity.Role)
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		next(w, r.WithContext(WithIdentity(r.Context(), identity)))
	}
}

// Optional attaches the caller's identity when a token is present. A token
// that is present but invalid is still rejected.
func (m *AuthMiddleware) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next(w, r)
			return
		}
		identity, err := m.resolver.CurrentIdentity(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r.WithContext(WithIdentity(r.Context(), identity)))
	}
}

// bearerToken reads the Authorization header. GET requests may pass the
// token as access_token instead, since EventSource cannot set headers.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if r.Method == http.MethodGet {
			if t := r.URL.Query().Get("access_token"); t != "" {
				return t, true
			}
		}
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
