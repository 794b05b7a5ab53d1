package hub

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ndavydov/messenger/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// wsFrame mirrors the SSE framing for websocket peers:
// the event name plus its JSON payload.
type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServeWS bridges a hub subscription onto a websocket connection. The
// stream is server-push only; inbound frames are drained solely to learn
// about disconnects. Blocks until the connection dies or the hub closes.
func ServeWS(h *Hub, conn *websocket.Conn, user models.PublicUser, logger *slog.Logger) {
	sub := h.Subscribe(user)
	defer h.Unsubscribe(sub.ID)
	defer conn.Close()

	go func() {
		// A dead peer is noticed on its read side first; unsubscribing
		// here frees the presence entry without waiting for the next write.
		readPump(conn)
		h.Unsubscribe(sub.ID)
	}()

	ready, err := json.Marshal(map[string]models.PublicUser{"user": user})
	if err != nil {
		return
	}
	if err := writeFrame(conn, Event{Name: "ready", Data: ready}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := writeFrame(conn, ev); err != nil {
				logger.Warn("websocket write failed", "user", user.Username, "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, ev Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsFrame{Event: ev.Name, Data: ev.Data})
}

func readPump(conn *websocket.Conn) {
	defer conn.Close()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
