package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/vncsmyrnk/poll/internal/adapters/handler/http"
	"github.com/vncsmyrnk/poll/internal/adapters/pubsub"
	"github.com/vncsmyrnk/poll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/poll/internal/config"
	"github.com/vncsmyrnk/poll/internal/core/ports"
	"github.com/vncsmyrnk/poll/internal/core/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	db, err := sql.Open("postgres", cfg.DB.ConnString())
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := pubsub.NewBus(cfg.BusBuffer, logger)
	var events ports.EventBus = bus
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		relay := pubsub.NewRedisRelay(bus, client, cfg.RedisChannel, logger)
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("redis relay stopped", "error", err)
			}
		}()
		events = relay
	}

	// Initialize Repositories
	pollRepo := postgres.NewPollRepository(db)
	voteRepo := postgres.NewVoteRepository(db)
	resultRepo := postgres.NewPollResultRepository(db)

	// Initialize Services
	identitySvc := services.NewIdentityService(voteRepo, cfg.IdentitySecret, nil, logger)
	statsSvc := services.NewStatsService(pollRepo, resultRepo)
	pollSvc := services.NewPollService(pollRepo, events, nil, logger)
	voteSvc := services.NewVoteService(pollRepo, voteRepo, identitySvc, statsSvc, events, nil, logger)

	handler := http.NewHandler(http.Handlers{
		Identity: http.NewIdentityHandler(identitySvc, cfg.CookieDomain, cfg.CookieSecure, logger),
		Poll:     http.NewPollHandler(pollSvc, statsSvc, logger),
		Vote:     http.NewVoteHandler(voteSvc, logger),
		Live:     http.NewLiveHandler(events, statsSvc, cfg.AllowedOrigins, logger),
	})
	server := &stdhttp.Server{Addr: cfg.HTTPAddr, Handler: handler}

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
