package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ndavydov/messenger/internal/models"
	"github.com/ndavydov/messenger/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/register", "", Credentials{Username: "alice", Password: "secret1"})
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp struct {
		User models.PublicUser `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 1, resp.User.ID)
	assert.Equal(t, "alice", resp.User.Username)

	t.Run("duplicate username", func(t *testing.T) {
		rr := env.do(t, "POST", "/api/register", "", Credentials{Username: "ALICE", Password: "secret1"})
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("invalid input", func(t *testing.T) {
		for name, creds := range map[string]Credentials{
			"short username":   {Username: "ab", Password: "secret1"},
			"long username":    {Username: "abcdefghijklmnopqrstuvwxy", Password: "secret1"},
			"bad characters":   {Username: "no spaces!", Password: "secret1"},
			"short password":   {Username: "bob", Password: "12345"},
			"empty everything": {},
		} {
			rr := env.do(t, "POST", "/api/register", "", creds)
			assert.Equal(t, http.StatusBadRequest, rr.Code, name)
		}
	})
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "POST", "/api/register", "", Credentials{Username: "alice", Password: "secret1"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(t, "POST", "/api/login", "", Credentials{Username: "alice", Password: "secret1"})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Token string            `json:"token"`
		User  models.PublicUser `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)

	t.Run("username lookup is case-insensitive", func(t *testing.T) {
		rr := env.do(t, "POST", "/api/login", "", Credentials{Username: "Alice", Password: "secret1"})
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		wrong := env.do(t, "POST", "/api/login", "", Credentials{Username: "alice", Password: "nope"})
		unknown := env.do(t, "POST", "/api/login", "", Credentials{Username: "nobody", Password: "secret1"})
		assert.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	})
}

func TestLoginRateLimitedByIP(t *testing.T) {
	env := newTestEnv(t)
	env.auth.LoginLimiter = ratelimit.New(5*time.Minute, 3)

	for i := 0; i < 3; i++ {
		rr := env.do(t, "POST", "/api/login", "", Credentials{Username: "ghost", Password: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "attempt %d admitted", i+1)
	}

	rr := env.do(t, "POST", "/api/login", "", Credentials{Username: "ghost", Password: "wrong"})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	t.Run("other address unaffected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/login", jsonBody(t, Credentials{Username: "ghost", Password: "wrong"}))
		req.Header.Set("X-Forwarded-For", "10.9.8.7")
		rr := httptest.NewRecorder()
		env.router().ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "alice", "secret1")

	rr := env.do(t, "GET", "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		User models.PublicUser `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "alice", resp.User.Username)

	t.Run("without token", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "alice", "secret1")

	rr := env.do(t, "POST", "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())

	rr = env.do(t, "GET", "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
