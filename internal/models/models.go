package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLen is the maximum number of characters in a chat message.
const MaxMessageLen = 1000

// MinPasswordLen is the minimum accepted password length at registration.
const MinPasswordLen = 6

var usernamePattern = regexp.MustCompile(`^[a-zA-Zа-яА-Я0-9_-]{3,24}$`)

var (
	ErrTextRequired = errors.New("Text is required")
	ErrTextTooLong  = errors.New("Text too long (max 1000)")
)

// User is the full user record, including the credential hash.
// Only PublicUser ever leaves the server.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username}
}

// PublicUser is the view of a user exposed over the API and in events.
type PublicUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type Message struct {
	ID             int       `json:"id"`
	SenderID       int       `json:"senderId"`
	SenderUsername string    `json:"senderUsername"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
}

// OnlineSummary describes who currently holds an open event stream,
// deduplicated by user id.
type OnlineSummary struct {
	Count int      `json:"count"`
	Users []string `json:"users"`
}

func NormalizeUsername(input string) string {
	return strings.TrimSpace(input)
}

func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// ValidateText trims the message body and enforces the length bounds.
func ValidateText(input string) (string, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return "", ErrTextRequired
	}
	if utf8.RuneCountInString(text) > MaxMessageLen {
		return "", ErrTextTooLong
	}
	return text, nil
}
