// EcoQuest Learning Hub background worker.
//
// Runs the scheduled jobs: the periodic leaderboard rebuild and the daily
// streak watch. Kept separate from the API server so job load never
// competes with request latency.
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
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/infrastructure/persistence/postgres"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/infrastructure/persistence/redis"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/infrastructure/scheduler"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/infrastructure/scheduler/jobs"
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
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled; nothing to run (set SCHEDULER_ENABLED=true)")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Logger
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.Observability.LogCaller,
	})

	log.Info("starting ecoquest worker",
		logger.String("version", cfg.App.Version),
		logger.String("environment", string(cfg.App.Environment)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. PostgreSQL (migrations are owned by the API server)
	// ─────────────────────────────────────────────────────────────────────────
	conn, err := connectPostgres(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close()

	progressRepo := postgres.NewProgressRepository(conn)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Scheduler and jobs
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(log)

	rebuildRegistered := false
	if !cfg.Redis.Disabled {
		cache, err := redis.NewCache(ctx, redis.Config{
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
			return fmt.Errorf("connect redis: %w", err)
		}
		defer cache.Close()

		rebuildJob := jobs.NewRebuildLeaderboardJob(
			progressRepo,
			redis.NewLeaderboardCache(cache),
			log,
			jobs.RebuildLeaderboardConfig{
				Limit:   cfg.Scheduler.LeaderboardLimit,
				Timeout: 30 * time.Second,
			},
		)
		if err := sched.Register(rebuildJob, scheduler.Every(cfg.Scheduler.RebuildLeaderboardInterval)); err != nil {
			return fmt.Errorf("register rebuild job: %w", err)
		}
		rebuildRegistered = true
	} else {
		log.Warn("redis disabled, skipping leaderboard rebuild job")
	}

	streakJob := jobs.NewStreakWatchJob(progressRepo, logReminder{log}, log)
	streakSchedule := scheduler.DailyAt(cfg.Scheduler.StreakWatchHour, cfg.Scheduler.StreakWatchMinute)
	if err := sched.Register(streakJob, streakSchedule); err != nil {
		return fmt.Errorf("register streak watch job: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Run
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	// Prime the leaderboard immediately instead of waiting a full interval.
	if rebuildRegistered {
		if _, err := sched.RunNow(ctx, "rebuild_leaderboard"); err != nil {
			log.Warn("initial leaderboard rebuild failed", logger.Err(err))
		}
	}

	<-ctx.Done()
	log.Info("shutdown signal received")

	if err := sched.Stop(); err != nil {
		log.Error("scheduler stop failed", logger.Err(err))
	}

	log.Info("worker stopped")
	return nil
}

// logReminder records streak reminders in the worker log. Delivery into
// the in-app feed needs a shared notification store; until then the
// nudge is at least visible to operators.
type logReminder struct {
	log *logger.Logger
}

func (r logReminder) PushStreakReminder(learnerID string, currentStreak int) {
	r.log.Info("streak reminder",
		logger.LearnerID(learnerID),
		logger.Int("current_streak", currentStreak),
	)
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
