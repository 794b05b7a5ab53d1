// Package hub tracks which identities hold an open event stream and fans
// out message/presence events to all of them.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ndavydov/messenger/internal/models"
)

// Event is one framed record on a stream: a name plus a pre-serialized
// JSON payload, shared across all subscribers of a broadcast.
type Event struct {
	Name string
	Data []byte
}

// Subscription is one open connection. The channel is buffered so one
// slow peer never blocks delivery to the others; a peer that falls a full
// buffer behind is dropped.
type Subscription struct {
	ID   uuid.UUID
	User models.PublicUser
	ch   chan Event
}

func (s *Subscription) Events() <-chan Event {
	return s.ch
}

const sendBuffer = 64

type Hub struct {
	mu        sync.RWMutex
	subs      map[uuid.UUID]*Subscription
	heartbeat time.Duration
	logger    *slog.Logger
}

func New(heartbeat time.Duration, logger *slog.Logger) *Hub {
	return &Hub{
		subs:      make(map[uuid.UUID]*Subscription),
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// Subscribe registers a connection for the given identity and announces
// the updated presence to everyone, the new connection included.
func (h *Hub) Subscribe(user models.PublicUser) *Subscription {
	sub := &Subscription{
		ID:   uuid.New(),
		User: user,
		ch:   make(chan Event, sendBuffer),
	}
	h.mu.Lock()
	h.subs[sub.ID] = sub
	total := len(h.subs)
	h.mu.Unlock()

	h.logger.Info("stream opened", "user", user.Username, "conn", sub.ID, "total", total)
	h.BroadcastPresence()
	return sub
}

// Unsubscribe deregisters the connection and announces presence again.
// Idempotent: a connection torn down from both its read and write side
// only broadcasts once.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		close(sub.ch)
	}
	total := len(h.subs)
	h.mu.Unlock()

	if ok {
		h.logger.Info("stream closed", "user", sub.User.Username, "conn", id, "total", total)
		h.BroadcastPresence()
	}
}

// Broadcast serializes payload once and delivers it to a snapshot of the
// current subscribers. A peer whose buffer is full is dropped; failure on
// one connection never affects the rest.
func (h *Hub) Broadcast(name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("event payload not serializable", "event", name, "error", err)
		return
	}
	ev := Event{Name: name, Data: data}

	var stale []uuid.UUID
	for _, sub := range h.snapshot() {
		if !h.deliver(sub, ev) {
			h.logger.Warn("dropping stalled stream", "user", sub.User.Username, "conn", sub.ID)
			stale = append(stale, sub.ID)
		}
	}
	for _, id := range stale {
		h.Unsubscribe(id)
	}
}

func (h *Hub) BroadcastPresence() {
	h.Broadcast("presence", h.Online())
}

func (h *Hub) snapshot() []*Subscription {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	return subs
}

// deliver sends without blocking. Membership is rechecked under the read
// lock because Unsubscribe closes the channel while holding the write
// lock; a send after close would panic.
func (h *Hub) deliver(sub *Subscription, ev Event) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.subs[sub.ID]; !ok {
		return true
	}
	select {
	case sub.ch <- ev:
		return true
	default:
		return false
	}
}

// Online summarizes presence, counting each user once however many
// streams they hold. Usernames come back sorted for stable rendering.
func (h *Hub) Online() models.OnlineSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[int]string)
	for _, sub := range h.subs {
		seen[sub.User.ID] = sub.User.Username
	}
	users := make([]string, 0, len(seen))
	for _, name := range seen {
		users = append(users, name)
	}
	sort.Strings(users)
	return models.OnlineSummary{Count: len(seen), Users: users}
}

// Run emits keep-alive pings until ctx is cancelled, then closes every
// open stream. Call in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.Broadcast("ping", struct{}{})
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}
