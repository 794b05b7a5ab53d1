package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/ndavydov/messenger/internal/auth"
	"github.com/ndavydov/messenger/internal/middleware"
	"github.com/ndavydov/messenger/internal/models"
	"github.com/ndavydov/messenger/internal/ratelimit"
	"github.com/ndavydov/messenger/internal/session"
	"github.com/ndavydov/messenger/internal/store"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthHandler struct {
	Store        store.Store
	Sessions     *session.Registry
	LoginLimiter *ratelimit.Limiter
	Logger       *slog.Logger
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	username := models.NormalizeUsername(creds.Username)
	if !models.ValidUsername(username) || len(creds.Password) < models.MinPasswordLen {
		writeError(w, http.StatusBadRequest,
			"Invalid username or password. Username: 3-24 (letters, numbers, _, -), password: min 6.")
		return
	}

	user, err := h.Store.CreateUser(username, auth.HashPassword(creds.Password))
	if errors.Is(err, store.ErrUsernameTaken) {
		writeError(w, http.StatusConflict, "Username already exists")
		return
	}
	if err != nil {
		h.Logger.Error("user create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]models.PublicUser{"user": user.Public()})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.LoginLimiter.Allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "Too many login attempts. Try again later.")
		return
	}

	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// One uniform failure path: login never reveals whether the
	// username exists.
	user, err := h.Store.FindUser(models.NormalizeUsername(creds.Username))
	if err != nil || !auth.VerifyPassword(creds.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.Sessions.Issue(user.Public())
	if err != nil {
		h.Logger.Error("session issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user.Public(),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Revoke(middleware.TokenFromContext(r.Context()))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]models.PublicUser{"user": user})
}

// clientIP prefers the first X-Forwarded-For hop so the login limiter
// keys on the real client when behind a proxy.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
