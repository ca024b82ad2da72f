package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rentbay/internal/app"
	"rentbay/internal/domain"
)

// Principal is the verified caller behind a bearer token.
type Principal struct {
	UserID string
	Email  string
	Role   string
}

const (
	RoleAdmin   = "admin"
	RoleService = "service_role"
)

func (p Principal) Admin() bool { return p.Role == RoleAdmin || p.Role == RoleService }

type contextKey string

const principalKey contextKey = "principal"

func principalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

func actorFrom(r *http.Request) app.Actor {
	p, ok := principalFrom(r.Context())
	if !ok {
		return app.Actor{}
	}
	return app.Actor{UserID: p.UserID, Admin: p.Admin()}
}

// Authenticator verifies HS256 access tokens issued by the hosted auth service.
type Authenticator struct {
	secret []byte
	leeway time.Duration
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), leeway: 30 * time.Second}
}

func (a *Authenticator) Verify(token string) (Principal, error) {
	if len(a.secret) == 0 {
		return Principal{}, errors.New("token verification is not configured")
	}
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithLeeway(a.leeway))
	if err != nil {
		return Principal{}, fmt.Errorf("jwt parse: %w", err)
	}
	if !parsed.Valid {
		return Principal{}, errors.New("jwt invalid")
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		return Principal{}, errors.New("token has no subject")
	}
	email, _ := claims["email"].(string)
	return Principal{UserID: sub, Email: email, Role: roleOf(claims)}, nil
}

// roleOf prefers app_metadata.role, which only the service can set. The top-level role
// claim is the database role ("authenticated", "anon") except for service tokens.
func roleOf(c jwt.MapClaims) string {
	if md, ok := c["app_metadata"].(map[string]any); ok {
		if r, ok := md["role"].(string); ok && r != "" {
			return r
		}
	}
	if r, _ := c["role"].(string); r == RoleService {
		return r
	}
	return "user"
}

// Middleware attaches the principal when a bearer token is present. Requests without one
// pass through anonymous; a malformed or invalid token is rejected.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if h == "" {
			next.ServeHTTP(w, r)
			return
		}
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			writeError(w, fmt.Errorf("%w: invalid authorization header format", domain.ErrUnauthorized))
			return
		}
		p, err := a.Verify(strings.TrimSpace(token))
		if err != nil {
			writeError(w, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := principalFrom(r.Context()); !ok {
			writeError(w, fmt.Errorf("%w: authentication required", domain.ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r.Context())
		if !ok {
			writeError(w, fmt.Errorf("%w: authentication required", domain.ErrUnauthorized))
			return
		}
		if !p.Admin() {
			writeError(w, fmt.Errorf("%w: admin role required", domain.ErrForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}
