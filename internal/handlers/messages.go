package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/ndavydov/messenger/internal/hub"
	"github.com/ndavydov/messenger/internal/middleware"
	"github.com/ndavydov/messenger/internal/models"
	"github.com/ndavydov/messenger/internal/ratelimit"
	"github.com/ndavydov/messenger/internal/store"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

type MessageHandler struct {
	Store       store.Store
	Hub         *hub.Hub
	PostLimiter *ratelimit.Limiter
	Logger      *slog.Logger

	// postMu serializes append+broadcast so every stream observes
	// messages in id order.
	postMu sync.Mutex
}

type postRequest struct {
	Text string `json:"text"`
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	beforeID := 0
	if v := r.URL.Query().Get("before_id"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid before_id")
			return
		}
		beforeID = parsed
	}

	limit := defaultPageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	messages, hasMore, err := h.Store.PageMessages(beforeID, limit)
	if err != nil {
		h.Logger.Error("message page failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"hasMore":  hasMore,
	})
}

func (h *MessageHandler) Post(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	if !h.PostLimiter.Allow(strconv.Itoa(user.ID)) {
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded (max 60 messages/min)")
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	text, err := models.ValidateText(req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.postMu.Lock()
	msg, err := h.Store.AppendMessage(user, text)
	if err != nil {
		h.postMu.Unlock()
		h.Logger.Error("message append failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.Hub.Broadcast("message", msg)
	h.postMu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]*models.Message{"message": msg})
}
