package jobs

import (
	"context"
	"fmt"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/learner"
	"github.com/ecoquest-hub/ecoquest-learning-hub/pkg/logger"
	"github.com/ecoquest-hub/ecoquest-learning-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK WATCH JOB
// ══════════════════════════════════════════════════════════════════════════════

// StreakReminder delivers a streak-expiry reminder to a learner.
type StreakReminder interface {
	PushStreakReminder(learnerID string, currentStreak int)
}

// StreakWatchJob finds learners whose streak expires at midnight UTC and
// queues an in-app reminder. Runs once a day in the evening so the nudge
// lands while there is still time to act.
type StreakWatchJob struct {
	progressRepo learner.ProgressRepository
	reminder     StreakReminder
	logger       *logger.Logger
}

// NewStreakWatchJob creates a new streak watch job.
func NewStreakWatchJob(progressRepo learner.ProgressRepository, reminder StreakReminder, log *logger.Logger) *StreakWatchJob {
	if log == nil {
		log = logger.Default()
	}
	return &StreakWatchJob{
		progressRepo: progressRepo,
		reminder:     reminder,
		logger:       log,
	}
}

// Name returns the job name.
func (j *StreakWatchJob) Name() string {
	return "streak_watch"
}

// Description returns a human-readable description.
func (j *StreakWatchJob) Description() string {
	return "Reminds learners whose streak expires at midnight"
}

// Run executes the streak watch.
func (j *StreakWatchJob) Run(ctx context.Context) error {
	today := timeutil.Today()

	atRisk, err := j.progressRepo.StreaksAtRisk(ctx, today)
	if err != nil {
		return fmt.Errorf("failed to load streaks at risk: %w", err)
	}

	for _, s := range atRisk {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		j.reminder.PushStreakReminder(s.LearnerID, s.CurrentStreak)
	}

	j.logger.Info("streak watch completed",
		logger.Int("at_risk", len(atRisk)),
		logger.Time("date", today),
	)

	return nil
}
