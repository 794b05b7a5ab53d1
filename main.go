package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/ndavydov/messenger/internal/config"
	"github.com/ndavydov/messenger/internal/handlers"
	"github.com/ndavydov/messenger/internal/hub"
	"github.com/ndavydov/messenger/internal/middleware"
	"github.com/ndavydov/messenger/internal/ratelimit"
	"github.com/ndavydov/messenger/internal/session"
	"github.com/ndavydov/messenger/internal/store"
	"github.com/ndavydov/messenger/internal/store/jsonstore"
	"github.com/ndavydov/messenger/internal/store/sqlstore"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var st store.Store
	switch cfg.StoreDriver {
	case "sqlite":
		var err error
		st, err = sqlstore.New(cfg.StoreDSN, cfg.Retention)
		if err != nil {
			logger.Error("store init failed", "dsn", cfg.StoreDSN, "error", err)
			os.Exit(1)
		}
	default:
		st = jsonstore.Open(cfg.StoreDSN, cfg.Retention, logger)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions := session.NewRegistry(cfg.SessionTTL)
	broadcaster := hub.New(cfg.Heartbeat, logger)
	go broadcaster.Run(ctx)

	authHandler := &handlers.AuthHandler{
		Store:        st,
		Sessions:     sessions,
		LoginLimiter: ratelimit.New(cfg.LoginWindow, cfg.LoginLimit),
		Logger:       logger,
	}
	messageHandler := &handlers.MessageHandler{
		Store:       st,
		Hub:         broadcaster,
		PostLimiter: ratelimit.New(cfg.MessageWindow, cfg.MessageLimit),
		Logger:      logger,
	}
	eventsHandler := &handlers.EventsHandler{Hub: broadcaster, Logger: logger}
	healthHandler := &handlers.HealthHandler{Store: st}
	authMiddleware := &middleware.Auth{Sessions: sessions}

	r := mux.NewRouter()
	r.Use(middleware.Logging(logger))

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.MaxBody(cfg.MaxBodyBytes))
	api.HandleFunc("/health", healthHandler.Check).Methods("GET")
	api.HandleFunc("/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/login", authHandler.Login).Methods("POST")

	authed := api.NewRoute().Subrouter()
	authed.Use(authMiddleware.Require)
	authed.HandleFunc("/logout", authHandler.Logout).Methods("POST")
	authed.HandleFunc("/me", authHandler.Me).Methods("GET")
	authed.HandleFunc("/online", eventsHandler.Online).Methods("GET")
	authed.HandleFunc("/messages", messageHandler.List).Methods("GET")
	authed.HandleFunc("/messages", messageHandler.Post).Methods("POST")
	authed.HandleFunc("/events", eventsHandler.Stream).Methods("GET")
	authed.HandleFunc("/ws", eventsHandler.WS).Methods("GET")

	r.PathPrefix("/").Handler(handlers.Static(cfg.PublicDir))

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	logger.Info("messenger listening", "addr", cfg.Addr, "store", cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
