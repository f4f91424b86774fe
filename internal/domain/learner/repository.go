package learner

import (
	"context"
	"time"
)

// Repository defines persistence operations for learner accounts.
type Repository interface {
	// Create persists a new learner. Returns shared.ErrLearnerAlreadyExists
	// when the email is taken.
	Create(ctx context.Context, l *Learner) error

	// GetByID finds a learner by internal ID.
	GetByID(ctx context.Context, id string) (*Learner, error)

	// GetByEmail finds a learner by email.
	GetByEmail(ctx context.Context, email Email) (*Learner, error)

	// Update persists changes to an existing learner.
	Update(ctx context.Context, l *Learner) error

	// Count returns the total number of learners.
	Count(ctx context.Context) (int, error)
}

// ProgressRepository defines persistence operations for progress records.
//
// All writes go through Update, which loads the record under an exclusive
// per-learner lock, applies fn, and persists the result in one transaction.
// Two concurrent updates for the same learner are serialized; neither is lost.
type ProgressRepository interface {
	// Get loads the progress record for a learner, including lesson
	// completions and earned achievements.
	Get(ctx context.Context, learnerID string) (*ProgressRecord, error)

	// Update applies fn to the learner's record inside a transaction.
	// fn receives the freshly loaded record; its mutations (via the
	// record's pending-change tracking) are persisted atomically.
	// If fn returns an error, nothing is written.
	Update(ctx context.Context, learnerID string, fn func(rec *ProgressRecord) error) (*ProgressRecord, error)

	// QuizAttempts returns a learner's most recent quiz attempts,
	// newest first, capped at limit.
	QuizAttempts(ctx context.Context, learnerID string, limit int) ([]QuizAttempt, error)

	// TopByXP returns the learner IDs with highest total XP, for
	// leaderboard rebuilds. Results are ordered by XP descending.
	TopByXP(ctx context.Context, limit int) ([]LeaderboardRow, error)

	// StreaksAtRisk returns learners whose streak will break unless they
	// are active today: current streak above zero, last activity yesterday
	// relative to the given date.
	StreaksAtRisk(ctx context.Context, today time.Time) ([]StreakAtRisk, error)
}

// LeaderboardRow is a single leaderboard entry produced by the store.
type LeaderboardRow struct {
	LearnerID   string
	DisplayName string
	TotalXP     int
	Level       int
}

// StreakAtRisk identifies a learner whose streak expires at midnight.
type StreakAtRisk struct {
	LearnerID        string
	DisplayName      string
	CurrentStreak    int
	LastActivityDate time.Time
}
