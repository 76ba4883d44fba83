package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/svaboev-coder/Tornado-cooking/internal/backup"
	"github.com/svaboev-coder/Tornado-cooking/internal/http/handlers"
	imw "github.com/svaboev-coder/Tornado-cooking/internal/http/middleware"
	"github.com/svaboev-coder/Tornado-cooking/internal/repo/postgres"
	"github.com/svaboev-coder/Tornado-cooking/internal/rooms"
	"github.com/svaboev-coder/Tornado-cooking/internal/session"
	"github.com/svaboev-coder/Tornado-cooking/internal/workflow"
	"github.com/svaboev-coder/Tornado-cooking/pkg/config"
	"github.com/svaboev-coder/Tornado-cooking/pkg/database"
	"github.com/svaboev-coder/Tornado-cooking/pkg/events"
	"github.com/svaboev-coder/Tornado-cooking/pkg/logger"
	mw "github.com/svaboev-coder/Tornado-cooking/pkg/middleware"
)

func main() {
	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		logger.Error("Failed to ensure schema", "error", err)
		os.Exit(1)
	}

	// Connect to event bus; the workflow runs without it
	var bus events.EventBus
	if natsBus, err := events.NewNATSEventBus(cfg.NATS.URL); err != nil {
		logger.Warn("NATS unavailable, events disabled", "error", err)
	} else {
		bus = natsBus
		defer natsBus.Close()
	}

	// Room directory: live reference table, or the demo fixture set
	var directory rooms.Directory
	if cfg.Rooms.DemoMode {
		logger.Info("Room directory running in demo mode")
		directory = rooms.NewFixtureDirectory()
	} else {
		directory = rooms.NewPostgresDirectory(pool)
	}

	visitorRepo := postgres.NewVisitorRepo(pool)

	var backups *backup.Manager
	if cfg.Backup.Enabled {
		backups = backup.NewManager(visitorRepo, cfg.Backup.Dir, cfg.Backup.MaxKeep, bus)
	}

	sessions := session.NewStore()
	var snapshots workflow.SnapshotRunner
	if backups != nil {
		snapshots = backups
	}
	engine := workflow.NewEngine(sessions, directory, visitorRepo, bus, snapshots)

	h := handlers.New(engine, handlers.NewAdminHandlers(visitorRepo, directory, backups))

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		MaxAge:         300,
	}))

	rateLimiter := imw.NewRateLimiter(pool, imw.RateLimitConfig{
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
		KeyFunc:  imw.ChatRateLimitKeyFunc,
	})

	// Redis-backed idempotency for repeated chat POSTs; optional
	var idem func(http.Handler) http.Handler
	if store, err := mw.NewRedisStore(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		logger.Warn("Redis unavailable, idempotency disabled", "error", err)
	} else if err := store.Ping(ctx); err != nil {
		logger.Warn("Redis unavailable, idempotency disabled", "error", err)
	} else {
		idem = mw.IdempotencyMiddleware(store)
		defer store.Close()
	}

	// Routes
	r.Route("/chat", func(r chi.Router) {
		r.Use(rateLimiter.Middleware())
		if idem != nil {
			r.Use(idem)
		}
		r.Post("/start", h.StartRegistration)
		r.Post("/", h.ProcessMessage)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/records", h.Admin().ListRecords)
		r.Get("/rooms", h.Admin().ListRooms)
		r.Get("/backups", h.Admin().ListBackups)
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down registration service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Registration service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting registration service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Registration service error", "error", err)
		os.Exit(1)
	}
}
