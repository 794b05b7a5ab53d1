package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/ndavydov/messenger/internal/hub"
	"github.com/ndavydov/messenger/internal/middleware"
	"github.com/ndavydov/messenger/internal/ratelimit"
	"github.com/ndavydov/messenger/internal/session"
	"github.com/ndavydov/messenger/internal/store"
	"github.com/ndavydov/messenger/internal/store/sqlstore"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type testEnv struct {
	store    store.Store
	sessions *session.Registry
	hub      *hub.Hub
	auth     *AuthHandler
	messages *MessageHandler
	events   *EventsHandler
	mw       *middleware.Auth
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlstore.New(":memory:", 1000)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sessions := session.NewRegistry(time.Hour)
	broadcaster := hub.New(time.Minute, discard)

	return &testEnv{
		store:    st,
		sessions: sessions,
		hub:      broadcaster,
		auth: &AuthHandler{
			Store:        st,
			Sessions:     sessions,
			LoginLimiter: ratelimit.New(5*time.Minute, 20),
			Logger:       discard,
		},
		messages: &MessageHandler{
			Store:       st,
			Hub:         broadcaster,
			PostLimiter: ratelimit.New(time.Minute, 60),
			Logger:      discard,
		},
		events: &EventsHandler{Hub: broadcaster, Logger: discard},
		mw:     &middleware.Auth{Sessions: sessions},
	}
}

// router mirrors the wiring in main.go.
func (e *testEnv) router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/register", e.auth.Register).Methods("POST")
	api.HandleFunc("/login", e.auth.Login).Methods("POST")

	authed := api.NewRoute().Subrouter()
	authed.Use(e.mw.Require)
	authed.HandleFunc("/logout", e.auth.Logout).Methods("POST")
	authed.HandleFunc("/me", e.auth.Me).Methods("GET")
	authed.HandleFunc("/online", e.events.Online).Methods("GET")
	authed.HandleFunc("/messages", e.messages.List).Methods("GET")
	authed.HandleFunc("/messages", e.messages.Post).Methods("POST")
	authed.HandleFunc("/events", e.events.Stream).Methods("GET")
	authed.HandleFunc("/ws", e.events.WS).Methods("GET")
	return r
}

func jsonBody(t *testing.T, payload any) *bytes.Buffer {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewBuffer(raw)
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if payload != nil {
		req = httptest.NewRequest(method, path, jsonBody(t, payload))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router().ServeHTTP(rr, req)
	return rr
}

// signup registers a user and logs them in, returning the bearer token.
func (e *testEnv) signup(t *testing.T, username, password string) string {
	t.Helper()
	rr := e.do(t, "POST", "/api/register", "", Credentials{Username: username, Password: password})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = e.do(t, "POST", "/api/login", "", Credentials{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}
