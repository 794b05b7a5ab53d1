package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/ndavydov/messenger/internal/hub"
	"github.com/ndavydov/messenger/internal/middleware"
	"github.com/ndavydov/messenger/internal/models"
)

type EventsHandler struct {
	Hub    *hub.Hub
	Logger *slog.Logger
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (h *EventsHandler) Online(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Hub.Online())
}

// Stream serves the SSE event stream: a ready frame, then message,
// presence, and ping frames until the client goes away or the hub shuts
// down.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sub := h.Hub.Subscribe(user)
	defer h.Hub.Unsubscribe(sub.ID)

	ready, _ := json.Marshal(map[string]models.PublicUser{"user": user})
	fmt.Fprintf(w, "event: ready\ndata: %s\n\n", ready)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// WS serves the same event feed over a websocket, for clients that cannot
// consume SSE.
func (h *EventsHandler) WS(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	hub.ServeWS(h.Hub, conn, user, h.Logger)
}
