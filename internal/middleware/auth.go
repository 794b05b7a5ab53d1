package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ndavydov/messenger/internal/models"
	"github.com/ndavydov/messenger/internal/session"
)

type contextKey string

const (
	userKey  contextKey = "user"
	tokenKey contextKey = "token"
)

type Auth struct {
	Sessions *session.Registry
}

// Require resolves the bearer token and puts the identity (and the token,
// for logout) on the request context. Missing, unknown, and expired
// tokens all get the same 401.
func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			unauthorized(w)
			return
		}
		user, ok := a.Sessions.Resolve(token)
		if !ok {
			unauthorized(w)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, prefix) {
		return header[len(prefix):]
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}

// UserFromContext returns the authenticated identity set by Require.
func UserFromContext(ctx context.Context) (models.PublicUser, bool) {
	user, ok := ctx.Value(userKey).(models.PublicUser)
	return user, ok
}

// TokenFromContext returns the bearer token set by Require.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
