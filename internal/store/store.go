// Package store defines the persistence contract shared by the JSON
// snapshot backend and the SQLite backend.
package store

import (
	"errors"

	"github.com/ndavydov/messenger/internal/models"
)

var (
	ErrUsernameTaken = errors.New("username already exists")
	ErrNotFound      = errors.New("not found")
)

type Store interface {
	// User operations. Usernames are unique case-insensitively.
	CreateUser(username, passwordHash string) (*models.User, error)
	FindUser(username string) (*models.User, error)

	// Message log. Ids are strictly increasing and never reused, even
	// after retention truncation or a restart.
	AppendMessage(sender models.PublicUser, text string) (*models.Message, error)
	PageMessages(beforeID, limit int) (messages []models.Message, hasMore bool, err error)

	Stats() (users, messages int, err error)
	Close() error
}
