// Package jsonstore persists the whole application state as a single
// JSON document, rewritten atomically (temp file + rename) on every
// mutation. A crash mid-write leaves the previous snapshot intact.
package jsonstore

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ndavydov/messenger/internal/models"
	"github.com/ndavydov/messenger/internal/store"
)

type state struct {
	Users         []models.User    `json:"users"`
	Messages      []models.Message `json:"messages"`
	NextUserID    int              `json:"nextUserId"`
	NextMessageID int              `json:"nextMessageId"`
}

type Store struct {
	mu        sync.Mutex
	path      string
	retention int
	state     state
	logger    *slog.Logger
	now       func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open loads the snapshot at path, or starts empty if it is missing or
// unreadable. Chat history is not safety-critical, so a corrupt file is
// logged and discarded rather than failing boot.
func Open(path string, retention int, logger *slog.Logger) *Store {
	s := &Store{
		path:      path,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
	s.state = loadState(path, logger)
	return s
}

func loadState(path string, logger *slog.Logger) state {
	empty := state{NextUserID: 1, NextMessageID: 1}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("snapshot unreadable, starting empty", "path", path, "error", err)
		}
		return empty
	}

	var st state
	if err := json.Unmarshal(raw, &st); err != nil {
		logger.Warn("snapshot corrupt, starting empty", "path", path, "error", err)
		return empty
	}
	if st.NextUserID < 1 {
		st.NextUserID = 1
	}
	if st.NextMessageID < 1 {
		st.NextMessageID = 1
	}
	return st
}

// snapshotLocked writes the full state to a temp file and renames it over
// the canonical one, so readers observe either the old or the new state,
// never a partial write. Callers must hold s.mu.
func (s *Store) snapshotLocked() error {
	raw, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// persistLocked snapshots and logs on failure. A failed disk write only
// loses durability for this mutation; the in-memory state stays valid and
// the request proceeds.
func (s *Store) persistLocked() {
	if err := s.snapshotLocked(); err != nil {
		s.logger.Error("snapshot write failed", "path", s.path, "error", err)
	}
}

func (s *Store) CreateUser(username, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Users {
		if strings.EqualFold(s.state.Users[i].Username, username) {
			return nil, store.ErrUsernameTaken
		}
	}

	user := models.User{
		ID:           s.state.NextUserID,
		Username:     username,
		PasswordHash: passwordHash,
	}
	s.state.NextUserID++
	s.state.Users = append(s.state.Users, user)
	s.persistLocked()
	return &user, nil
}

func (s *Store) FindUser(username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Users {
		if strings.EqualFold(s.state.Users[i].Username, username) {
			user := s.state.Users[i]
			return &user, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) AppendMessage(sender models.PublicUser, text string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := models.Message{
		ID:             s.state.NextMessageID,
		SenderID:       sender.ID,
		SenderUsername: sender.Username,
		Text:           text,
		CreatedAt:      s.now().UTC(),
	}
	s.state.NextMessageID++
	s.state.Messages = append(s.state.Messages, msg)

	if s.retention > 0 && len(s.state.Messages) > s.retention {
		// Drop the oldest; ids are never reassigned.
		trimmed := make([]models.Message, s.retention)
		copy(trimmed, s.state.Messages[len(s.state.Messages)-s.retention:])
		s.state.Messages = trimmed
	}

	s.persistLocked()
	return &msg, nil
}

func (s *Store) PageMessages(beforeID, limit int) ([]models.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.state.Messages
	end := len(msgs)
	if beforeID > 0 {
		// Messages are ascending by id, so the cursor position is the
		// first entry at or past beforeID.
		end = sort.Search(len(msgs), func(i int) bool { return msgs[i].ID >= beforeID })
	}

	start := end - limit
	if start < 0 {
		start = 0
	}

	page := make([]models.Message, end-start)
	copy(page, msgs[start:end])
	return page, start > 0, nil
}

func (s *Store) Stats() (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Users), len(s.state.Messages), nil
}

func (s *Store) Close() error {
	return nil
}
