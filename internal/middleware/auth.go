package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lillie/clipd/internal/config"
)

// Identity is the verified caller. Tokens are minted elsewhere; this
// service only verifies them.
type Identity struct {
	ID       uint
	Username string
	Elevated bool
}

type contextKey struct{}

var identityKey contextKey

// IdentityFrom returns the caller identity set by Auth, or nil.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// WithIdentity injects an identity into a context. Used by tests and by
// anything running outside the middleware chain.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Auth verifies the HMAC token from the tk cookie (the upload client
// sends it there) or an Authorization bearer header, and rejects the
// request with 401 before any work happens.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := verify(tokenFrom(r))
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func tokenFrom(r *http.Request) string {
	if c, err := r.Cookie("tk"); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return auth[7:]
	}
	return ""
}

func verify(tokenString string) (*Identity, bool) {
	if tokenString == "" {
		return nil, false
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return []byte(config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}

	id, ok := claims["id"].(float64)
	if !ok || id <= 0 {
		return nil, false
	}
	username, _ := claims["username"].(string)
	if username == "" {
		return nil, false
	}
	elevated, _ := claims["elevated"].(bool)

	return &Identity{ID: uint(id), Username: username, Elevated: elevated}, true
}
