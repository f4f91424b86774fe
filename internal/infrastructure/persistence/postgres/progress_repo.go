package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/learner"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"
	"github.com/ecoquest-hub/ecoquest-learning-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// Update() is the atomicity boundary for the whole progress engine: it
// locks the learner's progress row (SELECT ... FOR UPDATE), rebuilds the
// record, applies the caller's mutation, and persists every pending change
// in the same transaction. Two concurrent actions for one learner
// serialize on the row lock; neither update is lost.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements learner.ProgressRepository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// Get loads the full progress record for a learner.
func (r *ProgressRepository) Get(ctx context.Context, learnerID string) (*learner.ProgressRecord, error) {
	var rec *learner.ProgressRecord
	err := r.conn.WithTx(ctx, TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var err error
		rec, err = r.loadRecord(ctx, tx, learnerID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Update applies fn to the learner's record inside a transaction.
func (r *ProgressRepository) Update(ctx context.Context, learnerID string, fn func(rec *learner.ProgressRecord) error) (*learner.ProgressRecord, error) {
	var rec *learner.ProgressRecord

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var err error
		rec, err = r.loadRecord(ctx, tx, learnerID, true)
		if err != nil {
			return err
		}

		if err := fn(rec); err != nil {
			return err
		}

		return r.persistChanges(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}

	rec.ClearPending()
	return rec, nil
}

// QuizAttempts returns a learner's most recent attempts, newest first.
func (r *ProgressRepository) QuizAttempts(ctx context.Context, learnerID string, limit int) ([]learner.QuizAttempt, error) {
	query := `
		SELECT learner_id, game_mode, score, total_questions, correct_answers,
		       time_taken_seconds, xp_earned, created_at
		FROM quiz_attempts
		WHERE learner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, learnerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz attempts: %w", err)
	}
	defer rows.Close()

	var attempts []learner.QuizAttempt
	for rows.Next() {
		var a learner.QuizAttempt
		var xp int
		if err := rows.Scan(
			&a.LearnerID,
			&a.GameMode,
			&a.Score,
			&a.TotalQuestions,
			&a.CorrectAnswers,
			&a.TimeTakenSeconds,
			&xp,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quiz attempt: %w", err)
		}
		a.XPEarned = learner.XP(xp)
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

// TopByXP returns the highest-XP learners for leaderboard rebuilds.
func (r *ProgressRepository) TopByXP(ctx context.Context, limit int) ([]learner.LeaderboardRow, error) {
	query := `
		SELECT p.learner_id, l.display_name, p.total_xp
		FROM progress p
		JOIN learners l ON l.id = p.learner_id
		ORDER BY p.total_xp DESC, l.display_name ASC
		LIMIT $1
	`

	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []learner.LeaderboardRow
	for rows.Next() {
		var row learner.LeaderboardRow
		if err := rows.Scan(&row.LearnerID, &row.DisplayName, &row.TotalXP); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		row.Level = int(learner.CalculateLevel(learner.XP(row.TotalXP)))
		out = append(out, row)
	}

	return out, rows.Err()
}

// StreaksAtRisk returns learners whose last activity was yesterday
// relative to today, so their streak breaks unless they act.
func (r *ProgressRepository) StreaksAtRisk(ctx context.Context, today time.Time) ([]learner.StreakAtRisk, error) {
	query := `
		SELECT p.learner_id, l.display_name, p.current_streak, p.last_activity_date
		FROM progress p
		JOIN learners l ON l.id = p.learner_id
		WHERE p.current_streak > 0
		  AND p.last_activity_date = ($1::date - 1)
	`

	rows, err := r.conn.Query(ctx, query, timeutil.DateOf(today))
	if err != nil {
		return nil, fmt.Errorf("failed to query streaks at risk: %w", err)
	}
	defer rows.Close()

	var out []learner.StreakAtRisk
	for rows.Next() {
		var s learner.StreakAtRisk
		if err := rows.Scan(&s.LearnerID, &s.DisplayName, &s.CurrentStreak, &s.LastActivityDate); err != nil {
			return nil, fmt.Errorf("failed to scan streak at risk: %w", err)
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Internals
// ─────────────────────────────────────────────────────────────────────────────

// loadRecord rebuilds a ProgressRecord inside the given transaction.
// When forUpdate is set the progress row is locked for the duration of
// the transaction.
func (r *ProgressRepository) loadRecord(ctx context.Context, tx pgx.Tx, learnerID string, forUpdate bool) (*learner.ProgressRecord, error) {
	query := `
		SELECT total_xp, current_streak, best_streak, last_activity_date, updated_at
		FROM progress
		WHERE learner_id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var totalXP, currentStreak, bestStreak int
	var lastActivityDate *time.Time
	var updatedAt time.Time

	err := tx.QueryRow(ctx, query, learnerID).Scan(&totalXP, &currentStreak, &bestStreak, &lastActivityDate, &updatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	completions, err := r.loadLessonProgress(ctx, tx, learnerID)
	if err != nil {
		return nil, err
	}

	earned, err := r.loadEarnedAchievements(ctx, tx, learnerID)
	if err != nil {
		return nil, err
	}

	var lastActivity time.Time
	if lastActivityDate != nil {
		lastActivity = *lastActivityDate
	}

	return learner.RestoreProgressRecord(
		learnerID,
		learner.XP(totalXP),
		currentStreak,
		bestStreak,
		lastActivity,
		updatedAt,
		completions,
		earned,
	), nil
}

func (r *ProgressRepository) loadLessonProgress(ctx context.Context, tx pgx.Tx, learnerID string) ([]learner.LessonProgress, error) {
	query := `
		SELECT learner_id, lesson_id, status, score, time_spent_seconds, completed_at, updated_at
		FROM lesson_progress
		WHERE learner_id = $1
	`

	rows, err := tx.Query(ctx, query, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lesson progress: %w", err)
	}
	defer rows.Close()

	var out []learner.LessonProgress
	for rows.Next() {
		var lp learner.LessonProgress
		var status string
		var completedAt *time.Time
		if err := rows.Scan(&lp.LearnerID, &lp.LessonID, &status, &lp.Score, &lp.TimeSpentSeconds, &completedAt, &lp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lesson progress: %w", err)
		}
		lp.Status = learner.LessonStatus(status)
		if completedAt != nil {
			lp.CompletedAt = *completedAt
		}
		out = append(out, lp)
	}

	return out, rows.Err()
}

func (r *ProgressRepository) loadEarnedAchievements(ctx context.Context, tx pgx.Tx, learnerID string) ([]learner.EarnedAchievement, error) {
	query := `
		SELECT achievement_id, earned_at
		FROM learner_achievements
		WHERE learner_id = $1
	`

	rows, err := tx.Query(ctx, query, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	var out []learner.EarnedAchievement
	for rows.Next() {
		var ea learner.EarnedAchievement
		if err := rows.Scan(&ea.AchievementID, &ea.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		out = append(out, ea)
	}

	return out, rows.Err()
}

// persistChanges writes the record's summary row and every pending change.
func (r *ProgressRepository) persistChanges(ctx context.Context, tx pgx.Tx, rec *learner.ProgressRecord) error {
	var lastActivity *time.Time
	if !rec.LastActivityDate.IsZero() {
		d := rec.LastActivityDate
		lastActivity = &d
	}

	_, err := tx.Exec(ctx, `
		UPDATE progress SET
			total_xp = $1,
			current_streak = $2,
			best_streak = $3,
			last_activity_date = $4,
			updated_at = $5
		WHERE learner_id = $6
	`,
		int(rec.TotalXP),
		rec.CurrentStreak,
		rec.BestStreak,
		lastActivity,
		rec.UpdatedAt,
		rec.LearnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}

	for _, lp := range rec.TouchedLessonProgress() {
		var completedAt *time.Time
		if !lp.CompletedAt.IsZero() {
			c := lp.CompletedAt
			completedAt = &c
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO lesson_progress (learner_id, lesson_id, status, score, time_spent_seconds, completed_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (learner_id, lesson_id) DO UPDATE SET
				status = EXCLUDED.status,
				score = EXCLUDED.score,
				time_spent_seconds = EXCLUDED.time_spent_seconds,
				completed_at = COALESCE(lesson_progress.completed_at, EXCLUDED.completed_at),
				updated_at = EXCLUDED.updated_at
		`,
			lp.LearnerID,
			lp.LessonID,
			string(lp.Status),
			lp.Score,
			lp.TimeSpentSeconds,
			completedAt,
			lp.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert lesson progress: %w", err)
		}
	}

	for _, a := range rec.NewQuizAttempts() {
		_, err := tx.Exec(ctx, `
			INSERT INTO quiz_attempts (learner_id, game_mode, score, total_questions, correct_answers, time_taken_seconds, xp_earned, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			a.LearnerID,
			a.GameMode,
			a.Score,
			a.TotalQuestions,
			a.CorrectAnswers,
			a.TimeTakenSeconds,
			int(a.XPEarned),
			a.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert quiz attempt: %w", err)
		}
	}

	for _, ea := range rec.NewlyEarnedAchievements() {
		_, err := tx.Exec(ctx, `
			INSERT INTO learner_achievements (learner_id, achievement_id, earned_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (learner_id, achievement_id) DO NOTHING
		`,
			rec.LearnerID,
			ea.AchievementID,
			ea.EarnedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert achievement: %w", err)
		}
	}

	return nil
}
