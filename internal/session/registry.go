// Package session maps opaque bearer tokens to authenticated identities
// with a sliding idle-timeout expiry.
package session

import (
	"sync"
	"time"

	"github.com/ndavydov/messenger/internal/auth"
	"github.com/ndavydov/messenger/internal/models"
)

type record struct {
	user      models.PublicUser
	createdAt time.Time
	touchedAt time.Time
}

// Registry owns all live sessions. It is constructed per server instance
// and passed to handlers; there is no package-level state.
type Registry struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*record
	now      func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		ttl:      ttl,
		sessions: make(map[string]*record),
		now:      time.Now,
	}
}

// Issue mints a random token for the given identity.
func (r *Registry) Issue(user models.PublicUser) (string, error) {
	token, err := auth.NewToken()
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.sessions[token] = &record{user: user, createdAt: now, touchedAt: now}
	return token, nil
}

// Resolve evicts idle sessions, then looks the token up. A surviving
// session has its idle timer refreshed. Expired and unknown tokens are
// indistinguishable to the caller.
func (r *Registry) Resolve(token string) (models.PublicUser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for t, s := range r.sessions {
		if now.Sub(s.touchedAt) > r.ttl {
			delete(r.sessions, t)
		}
	}

	s, ok := r.sessions[token]
	if !ok {
		return models.PublicUser{}, false
	}
	s.touchedAt = now
	return s.user, true
}

// Revoke removes the token. Revoking an unknown token is not an error.
func (r *Registry) Revoke(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
}
