package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/tasklane/tasklane-backend/config"
	"github.com/tasklane/tasklane-backend/internal/ai"
	"github.com/tasklane/tasklane-backend/internal/bootstrap"
	"github.com/tasklane/tasklane-backend/internal/logging"
	"github.com/tasklane/tasklane-backend/internal/users"
	"github.com/tasklane/tasklane-backend/internal/workspace"
)

func main() {
	envFile := pflag.String("env-file", ".env", "path to an env file loaded before the process environment")
	port := pflag.String("port", "", "listen port (overrides PORT)")
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	logging.SetLevel(cfg.App.LogLevel)
	bootstrap.SetGinMode(cfg.App.Environment)
	logger := logging.For("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, app, err := bootstrap.OpenProvider(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize auth: %v", err)
	}

	backend, err := bootstrap.OpenStore(ctx, cfg, app)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.Store.Backend, err)
	}
	defer backend.Close()

	var userRepo *users.Repo
	db, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: cfg.Database.DSN})
	switch {
	case cfg.Database.DSN == "":
		logger.LogInfof("db", "DB_DSN not set, user directory disabled")
	case err != nil:
		log.Fatalf("failed to open database: %v", err)
	default:
		defer db.Close()
		userRepo = users.NewRepo(db)
		if err := userRepo.Migrate(ctx); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
	}

	tasks, err := ai.New(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize AI: %v", err)
	}

	hub := workspace.NewHub(workspace.HubConfig{
		Store:        backend.Store,
		Provider:     provider,
		Tasks:        tasks,
		VoiceEnabled: cfg.Voice.Enabled,
		IdleTTL:      cfg.Workspace.IdleTTL,
	})
	defer hub.Close()

	evictor, err := workspace.StartEvictor(hub, cfg.Workspace.EvictSchedule)
	if err != nil {
		log.Fatalf("failed to schedule eviction: %v", err)
	}
	defer evictor.Stop()

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    "tasklane-api",
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Store:          backend.Check,
		DB:             db,
		Verifier:       provider,
		Hub:            hub,
		Users:          userRepo,
	})

	// No WriteTimeout: the workspace stream is long-lived.
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.LogInfof("listen", "addr=%s store=%s ai=%t", srv.Addr, cfg.Store.Backend, tasks.Available())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.LogInfof("shutdown", "draining connections")

	// Close workspaces first so open streams end.
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.LogErrorf("shutdown", "graceful shutdown failed: %v", err)
	}
}
