// Package sqlstore implements the store contract on SQLite. Id counters
// live in a meta table so retention deletes never reuse ids.
package sqlstore

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/ndavydov/messenger/internal/models"
	"github.com/ndavydov/messenger/internal/store"
)

type Store struct {
	db        *sql.DB
	retention int
}

var _ store.Store = (*Store)(nil)

func New(dataSourceName string, retention int) (*Store, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	s := &Store{db: db, retention: retention}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		username TEXT NOT NULL,
		password_hash TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS users_username_nocase
		ON users (username COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY,
		sender_id INTEGER NOT NULL,
		sender_username TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);

	INSERT OR IGNORE INTO counters (name, value)
		VALUES ('next_user_id', 1), ('next_message_id', 1);
	`
	_, err := s.db.Exec(query)
	return err
}

func nextID(tx *sql.Tx, name string) (int, error) {
	var id int
	if err := tx.QueryRow("SELECT value FROM counters WHERE name = ?", name).Scan(&id); err != nil {
		return 0, err
	}
	if _, err := tx.Exec("UPDATE counters SET value = value + 1 WHERE name = ?", name); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) CreateUser(username, passwordHash string) (*models.User, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var taken bool
	err = tx.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM users WHERE username = ? COLLATE NOCASE)",
		username,
	).Scan(&taken)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, store.ErrUsernameTaken
	}

	id, err := nextID(tx, "next_user_id")
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(
		"INSERT INTO users (id, username, password_hash) VALUES (?, ?, ?)",
		id, username, passwordHash,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &models.User{ID: id, Username: username, PasswordHash: passwordHash}, nil
}

func (s *Store) FindUser(username string) (*models.User, error) {
	var user models.User
	err := s.db.QueryRow(
		"SELECT id, username, password_hash FROM users WHERE username = ? COLLATE NOCASE",
		username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) AppendMessage(sender models.PublicUser, text string) (*models.Message, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id, err := nextID(tx, "next_message_id")
	if err != nil {
		return nil, err
	}

	msg := models.Message{
		ID:             id,
		SenderID:       sender.ID,
		SenderUsername: sender.Username,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := tx.Exec(
		"INSERT INTO messages (id, sender_id, sender_username, text, created_at) VALUES (?, ?, ?, ?, ?)",
		msg.ID, msg.SenderID, msg.SenderUsername, msg.Text, msg.CreatedAt,
	); err != nil {
		return nil, err
	}

	if s.retention > 0 {
		// Ids are gapless, so everything at or below id-retention is
		// beyond the cap.
		if _, err := tx.Exec("DELETE FROM messages WHERE id <= ?", msg.ID-s.retention); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *Store) PageMessages(beforeID, limit int) ([]models.Message, bool, error) {
	query := "SELECT id, sender_id, sender_username, text, created_at FROM messages ORDER BY id DESC LIMIT ?"
	args := []any{limit}
	if beforeID > 0 {
		query = "SELECT id, sender_id, sender_username, text, created_at FROM messages WHERE id < ? ORDER BY id DESC LIMIT ?"
		args = []any{beforeID, limit}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var page []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.SenderUsername, &m.Text, &m.CreatedAt); err != nil {
			return nil, false, err
		}
		page = append(page, m)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	// Rows came newest-first; callers get ascending order.
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}

	hasMore := false
	if len(page) > 0 {
		if err := s.db.QueryRow(
			"SELECT EXISTS(SELECT 1 FROM messages WHERE id < ?)", page[0].ID,
		).Scan(&hasMore); err != nil {
			return nil, false, err
		}
	}
	return page, hasMore, nil
}

func (s *Store) Stats() (int, int, error) {
	var users, messages int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&users); err != nil {
		return 0, 0, err
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&messages); err != nil {
		return 0, 0, err
	}
	return users, messages, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
