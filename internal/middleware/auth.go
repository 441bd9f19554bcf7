package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arjunmehta/ledger-service/internal/models"
	u "github.com/arjunmehta/ledger-service/internal/utils"
)

// Principal is the verified caller identity placed in the request context by
// the authentication middleware.
type Principal struct {
	ID   string
	Role models.Role
}

type contextKey struct{}

var principalKey = contextKey{}

// PrincipalFrom returns the authenticated principal for the request, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(principalKey).(*Principal)
	return principal, ok
}

type Authenticator struct {
	jwtSecret []byte
	logger    *slog.Logger
}

func NewAuthenticator(jwtSecret []byte, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// Middleware verifies the Bearer token and attaches the principal to the
// request context. Requests without a valid token are rejected with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			u.WriteError(w, http.StatusUnauthorized, "missing or malformed authorization header", "")
			return
		}

		principal, err := a.verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			a.logger.Warn("rejected token", "error", err.Error())
			u.WriteError(w, http.StatusUnauthorized, "invalid or expired token", "")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) verify(tokenString string) (*Principal, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role == "" {
		return nil, fmt.Errorf("token missing subject or role")
	}

	return &Principal{
		ID:   sub,
		Role: models.Role(role),
	}, nil
}

// RequireAdmin allows only admin and super-admin principals through. It must
// run after the authentication middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFrom(r.Context())
		if !ok {
			u.WriteError(w, http.StatusUnauthorized, "authentication required", "")
			return
		}
		if !principal.Role.CanFund() {
			u.WriteError(w, http.StatusForbidden, "admin role required", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
