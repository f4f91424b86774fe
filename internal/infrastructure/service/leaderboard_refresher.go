package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/learner"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"
	"github.com/ecoquest-hub/ecoquest-learning-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD REFRESHER
// Keeps the cached leaderboard warm between scheduled rebuilds by bumping
// a learner's score whenever they gain XP. Best effort: a failed bump is
// logged and corrected by the next rebuild.
// ══════════════════════════════════════════════════════════════════════════════

// ScoreUpdater writes a single learner's row into the leaderboard cache.
type ScoreUpdater interface {
	UpdateScore(ctx context.Context, row learner.LeaderboardRow) error
}

// updateTimeout bounds one cache bump; the handler runs on the event
// bus worker pool and must not hold a slot indefinitely.
const updateTimeout = 5 * time.Second

// LeaderboardRefresher subscribes to XP gains and pushes them into the
// leaderboard cache.
type LeaderboardRefresher struct {
	learnerRepo learner.Repository
	updater     ScoreUpdater
	logger      *logger.Logger
}

// NewLeaderboardRefresher creates a LeaderboardRefresher.
func NewLeaderboardRefresher(learnerRepo learner.Repository, updater ScoreUpdater, log *logger.Logger) *LeaderboardRefresher {
	if log == nil {
		log = logger.Default()
	}
	return &LeaderboardRefresher{
		learnerRepo: learnerRepo,
		updater:     updater,
		logger:      log,
	}
}

// RegisterHandlers subscribes the refresher to XP gain events.
func (r *LeaderboardRefresher) RegisterHandlers(bus shared.EventSubscriber) error {
	if err := bus.Subscribe(shared.EventXPGained, r.handleXPGained); err != nil {
		return fmt.Errorf("subscribe %s: %w", shared.EventXPGained, err)
	}
	return nil
}

// handleXPGained bumps the learner's cached score to the new total.
func (r *LeaderboardRefresher) handleXPGained(event shared.Event) error {
	e, ok := event.(shared.XPGainedEvent)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
	defer cancel()

	l, err := r.learnerRepo.GetByID(ctx, e.LearnerID)
	if err != nil {
		return fmt.Errorf("load learner %s: %w", e.LearnerID, err)
	}

	row := learner.LeaderboardRow{
		LearnerID:   e.LearnerID,
		DisplayName: l.DisplayName,
		TotalXP:     e.NewTotal,
		Level:       int(learner.CalculateLevel(learner.XP(e.NewTotal))),
	}

	if err := r.updater.UpdateScore(ctx, row); err != nil {
		r.logger.Warn("leaderboard bump failed",
			logger.LearnerID(e.LearnerID),
			logger.Err(err),
		)
		return err
	}

	return nil
}
