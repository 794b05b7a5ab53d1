package sqlstore

import (
	"fmt"
	"testing"

	"github.com/ndavydov/messenger/internal/models"
	"github.com/ndavydov/messenger/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = models.PublicUser{ID: 1, Username: "alice"}

func newTestStore(t *testing.T, retention int) *Store {
	t.Helper()
	s, err := New(":memory:", retention)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateUser(t *testing.T) {
	s := newTestStore(t, 1000)

	user, err := s.CreateUser("alice", "salt:digest")
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)

	second, err := s.CreateUser("bob", "salt:digest")
	require.NoError(t, err)
	assert.Equal(t, 2, second.ID)

	_, err = s.CreateUser("ALICE", "salt:digest")
	assert.ErrorIs(t, err, store.ErrUsernameTaken)
}

func TestFindUser(t *testing.T) {
	s := newTestStore(t, 1000)
	_, err := s.CreateUser("alice", "salt:digest")
	require.NoError(t, err)

	user, err := s.FindUser("Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "salt:digest", user.PasswordHash)

	_, err = s.FindUser("nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAppendAndRetention(t *testing.T) {
	s := newTestStore(t, 5)

	for i := 1; i <= 8; i++ {
		msg, err := s.AppendMessage(alice, fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
		assert.Equal(t, i, msg.ID)
	}

	msgs, hasMore, err := s.PageMessages(0, 100)
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, msgs, 5)
	assert.Equal(t, 4, msgs[0].ID)
	assert.Equal(t, 8, msgs[4].ID)

	msg, err := s.AppendMessage(alice, "msg 9")
	require.NoError(t, err)
	assert.Equal(t, 9, msg.ID, "counter not rewound by retention deletes")
}

func TestPageMessages(t *testing.T) {
	s := newTestStore(t, 1000)
	for i := 1; i <= 10; i++ {
		_, err := s.AppendMessage(alice, fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}

	msgs, hasMore, err := s.PageMessages(0, 3)
	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, msgs, 3)
	assert.Equal(t, 8, msgs[0].ID)
	assert.Equal(t, 10, msgs[2].ID)

	msgs, hasMore, err = s.PageMessages(8, 3)
	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, msgs, 3)
	assert.Equal(t, 5, msgs[0].ID)
	assert.Equal(t, 7, msgs[2].ID)

	msgs, hasMore, err = s.PageMessages(4, 10)
	require.NoError(t, err)
	assert.False(t, hasMore)
	require.Len(t, msgs, 3)
	assert.Equal(t, 1, msgs[0].ID)

	msgs, hasMore, err = s.PageMessages(1, 10)
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.Empty(t, msgs)
}

func TestStats(t *testing.T) {
	s := newTestStore(t, 1000)
	_, err := s.CreateUser("alice", "salt:digest")
	require.NoError(t, err)
	_, err = s.AppendMessage(alice, "hello")
	require.NoError(t, err)

	users, messages, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, messages)
}
