package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/georgemunganga/shopfront-backend/internal/modules/user"
)

type ctxKey struct{}

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	UserID int64
	Role   user.Role
}

func (p Principal) IsAdmin() bool { return p.Role == user.RoleAdmin }

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the caller, if the request was authenticated.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// UserID returns the authenticated user's id, or 0.
func UserID(ctx context.Context) int64 {
	p, _ := FromContext(ctx)
	return p.UserID
}

// Middleware turns bearer tokens into a Principal.
type Middleware struct {
	service Service
}

func NewMiddleware(service Service) *Middleware { return &Middleware{service: service} }

// Authenticate rejects requests without a valid bearer token.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := m.principal(r)
		if !ok {
			respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Optional attaches a Principal when a valid token is present and lets anonymous requests through.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := m.principal(r); ok {
			r = r.WithContext(WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole must run after Authenticate.
func (m *Middleware) RequireRole(role user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok {
				respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}
			if p.Role != role {
				respond(w, http.StatusForbidden, map[string]string{"error": "insufficient role"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Admin is Authenticate followed by RequireRole(admin).
func (m *Middleware) Admin(next http.Handler) http.Handler {
	return m.Authenticate(m.RequireRole(user.RoleAdmin)(next))
}

func (m *Middleware) principal(r *http.Request) (Principal, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return Principal{}, false
	}
	claims, err := m.service.ParseToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return Principal{}, false
	}
	id, _ := strconv.ParseInt(claims.Subject, 10, 64)
	return Principal{UserID: id, Role: claims.Role}, true
}
