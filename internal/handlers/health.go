package handlers

import (
	"net/http"

	"github.com/ndavydov/messenger/internal/store"
)

type HealthHandler struct {
	Store store.Store
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	users, messages, err := h.Store.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"users":    users,
		"messages": messages,
	})
}
