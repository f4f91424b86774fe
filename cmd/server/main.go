// EcoQuest Learning Hub API server.
//
// Serves the REST API for the SPA frontend: registration and sign-in,
// lesson completion, quiz attempts, the progress dashboard, achievements,
// and the leaderboard. The scheduled jobs live in the worker binary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ecoquest-hub/ecoquest-learning-hub/config"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/application/command"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/application/query"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/infrastructure/messaging"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/infrastructure/persistence/postgres"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/infrastructure/persistence/redis"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/infrastructure/service"
	httpserver "github.com/ecoquest-hub/ecoquest-learning-hub/internal/interface/http"
	"github.com/ecoquest-hub/ecoquest-learning-hub/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Logger
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.Observability.LogCaller,
	})

	log.Info("starting ecoquest api server",
		logger.String("version", cfg.App.Version),
		logger.String("environment", string(cfg.App.Environment)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. PostgreSQL
	// ─────────────────────────────────────────────────────────────────────────
	conn, err := connectPostgres(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close()

	migrator := postgres.NewMigrator(conn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("database ready")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Redis (optional; leaderboard degrades to store reads without it)
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache
	if !cfg.Redis.Disabled {
		cache, err = redis.NewCache(ctx, redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   3,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Warn("redis unavailable, leaderboard served from store", logger.Err(err))
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Repositories
	// ─────────────────────────────────────────────────────────────────────────
	learnerRepo := postgres.NewLearnerRepository(conn)
	progressRepo := postgres.NewProgressRepository(conn)
	catalogRepo := postgres.NewCatalogRepository(conn)
	achievementRepo := postgres.NewAchievementRepository(conn)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Event bus and subscribers
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(busConfig)
	defer eventBus.Close()

	notifications := service.NewNotificationService(log)
	if err := notifications.RegisterHandlers(eventBus); err != nil {
		return fmt.Errorf("register notification handlers: %w", err)
	}

	var leaderboardCache query.LeaderboardCache
	if cache != nil {
		lc := redis.NewLeaderboardCache(cache)
		leaderboardCache = lc

		refresher := service.NewLeaderboardRefresher(learnerRepo, lc, log)
		if err := refresher.RegisterHandlers(eventBus); err != nil {
			return fmt.Errorf("register leaderboard refresher: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. Application layer
	// ─────────────────────────────────────────────────────────────────────────
	hasher := service.NewBcryptHasher(0) // 0 selects the default cost

	deps := httpserver.Dependencies{
		RegisterLearnerHandler:     command.NewRegisterLearnerHandler(learnerRepo, hasher, eventBus),
		AuthenticateLearnerHandler: command.NewAuthenticateLearnerHandler(learnerRepo, hasher),
		CompleteLessonHandler:      command.NewCompleteLessonHandler(learnerRepo, progressRepo, catalogRepo, achievementRepo, eventBus),
		RecordQuizAttemptHandler:   command.NewRecordQuizAttemptHandler(learnerRepo, progressRepo, catalogRepo, achievementRepo, eventBus),

		GetProgressHandler:     query.NewGetProgressHandler(learnerRepo, progressRepo, catalogRepo),
		GetLeaderboardHandler:  query.NewGetLeaderboardHandler(progressRepo, leaderboardCache),
		GetAchievementsHandler: query.NewGetAchievementsHandler(achievementRepo),
		GetQuizHistoryHandler:  query.NewGetQuizHistoryHandler(progressRepo),

		LeaderboardCache: leaderboardCache,
		Notifications:    notifications,
		HealthTargets:    buildHealthTargets(conn, cache),
		Logger:           log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	server := httpserver.NewServer(httpserver.Config{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		ReadTimeout:        cfg.Server.ReadTimeout,
		WriteTimeout:       cfg.Server.WriteTimeout,
		IdleTimeout:        cfg.Server.IdleTimeout,
		MaxHeaderBytes:     1 << 20,
		EnableCORS:         cfg.Server.EnableCORS,
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	}, deps)

	errCh := server.StartAsync()
	log.Info("api server listening", logger.String("address", server.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 9. Wait for shutdown signal or server failure
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", logger.Err(err))
	}

	if err := eventBus.Close(); err != nil {
		log.Error("event bus close failed", logger.Err(err))
	}

	log.Info("api server stopped")
	return nil
}

// connectPostgres prefers DATABASE_URL and falls back to individual settings.
func connectPostgres(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	if cfg.Database.URL != "" {
		return postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	}

	return postgres.NewConnection(ctx, postgres.Config{
		Host:              cfg.Database.Host,
		Port:              cfg.Database.Port,
		Database:          cfg.Database.Name,
		User:              cfg.Database.User,
		Password:          cfg.Database.Password,
		SSLMode:           cfg.Database.SSLMode,
		MaxConns:          cfg.Database.MaxConns,
		MinConns:          cfg.Database.MinConns,
		MaxConnLifetime:   cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime:   cfg.Database.ConnMaxIdleTime,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    cfg.Database.ConnectTimeout,
	})
}

func buildHealthTargets(conn *postgres.Connection, cache *redis.Cache) map[string]httpserver.Pinger {
	targets := map[string]httpserver.Pinger{
		"postgres": conn,
	}
	if cache != nil {
		targets["redis"] = cache
	}
	return targets
}
