// Package jobs contains the scheduled jobs run by the EcoQuest worker.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/learner"
	"github.com/ecoquest-hub/ecoquest-learning-hub/pkg/logger"
	"github.com/ecoquest-hub/ecoquest-learning-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardRebuilder replaces the cached leaderboard with fresh rows.
type LeaderboardRebuilder interface {
	Rebuild(ctx context.Context, rows []learner.LeaderboardRow) error
}

// RebuildLeaderboardConfig contains configuration for the rebuild job.
type RebuildLeaderboardConfig struct {
	// Limit is how many rows to load from the store.
	Limit int

	// Timeout is the maximum duration for one rebuild.
	Timeout time.Duration
}

// DefaultRebuildLeaderboardConfig returns sensible defaults.
func DefaultRebuildLeaderboardConfig() RebuildLeaderboardConfig {
	return RebuildLeaderboardConfig{
		Limit:   100,
		Timeout: 30 * time.Second,
	}
}

// RebuildStats contains statistics from the last rebuild run.
type RebuildStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	RowsLoaded  int
}

// RebuildLeaderboardJob loads the top learners from the store and
// rewrites the Redis leaderboard. Cache writes are retried; the store
// stays the source of truth, so a failed run just means a stale board
// until the next tick.
type RebuildLeaderboardJob struct {
	progressRepo learner.ProgressRepository
	cache        LeaderboardRebuilder
	retrier      *retry.Retrier
	logger       *logger.Logger
	config       RebuildLeaderboardConfig

	lastStats atomic.Value // *RebuildStats
}

// NewRebuildLeaderboardJob creates a new rebuild leaderboard job.
func NewRebuildLeaderboardJob(
	progressRepo learner.ProgressRepository,
	cache LeaderboardRebuilder,
	log *logger.Logger,
	config RebuildLeaderboardConfig,
) *RebuildLeaderboardJob {
	if log == nil {
		log = logger.Default()
	}
	if config.Limit <= 0 {
		config.Limit = 100
	}

	return &RebuildLeaderboardJob{
		progressRepo: progressRepo,
		cache:        cache,
		retrier: retry.New(
			retry.WithMaxAttempts(3),
			retry.WithInitialDelay(200*time.Millisecond),
			retry.WithRetryIf(func(err error) bool { return err != nil }),
		),
		logger: log,
		config: config,
	}
}

// Name returns the job name.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description returns a human-readable description.
func (j *RebuildLeaderboardJob) Description() string {
	return "Rebuilds the Redis leaderboard from the progress store"
}

// Run executes the rebuild job.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	startedAt := time.Now()

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	rows, err := j.progressRepo.TopByXP(ctx, j.config.Limit)
	if err != nil {
		return fmt.Errorf("failed to load leaderboard rows: %w", err)
	}

	err = j.retrier.Do(ctx, func(ctx context.Context) error {
		return j.cache.Rebuild(ctx, rows)
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild leaderboard cache: %w", err)
	}

	stats := &RebuildStats{
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
		RowsLoaded:  len(rows),
	}
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	j.lastStats.Store(stats)

	j.logger.Info("leaderboard rebuilt",
		logger.Int("rows", len(rows)),
		logger.Duration("duration", stats.Duration),
	)

	return nil
}

// LastStats returns statistics from the last successful rebuild.
func (j *RebuildLeaderboardJob) LastStats() *RebuildStats {
	stats := j.lastStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RebuildStats)
}
