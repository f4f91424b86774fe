package postgres

import (
	"context"
	"fmt"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/achievement"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT REPOSITORY IMPLEMENTATION
// Definitions are seeded by migrations; unlock rows are written by the
// progress transaction. This repository only reads.
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRepository implements achievement.Repository for PostgreSQL.
type AchievementRepository struct {
	conn *Connection
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(conn *Connection) *AchievementRepository {
	return &AchievementRepository{conn: conn}
}

// GetDefinitions returns all achievement definitions in ID order.
func (r *AchievementRepository) GetDefinitions(ctx context.Context) ([]achievement.Definition, error) {
	query := `
		SELECT id, name, description, icon, criteria, xp_bonus, created_at
		FROM achievement_definitions
		ORDER BY id
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievement definitions: %w", err)
	}
	defer rows.Close()

	var out []achievement.Definition
	for rows.Next() {
		var d achievement.Definition
		var criteriaJSON []byte

		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Icon, &criteriaJSON, &d.XPBonus, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement definition: %w", err)
		}

		criteria, err := achievement.ParseCriteria(criteriaJSON)
		if err != nil {
			return nil, fmt.Errorf("achievement %d has invalid criteria: %w", d.ID, err)
		}
		d.Criteria = criteria

		out = append(out, d)
	}

	return out, rows.Err()
}

// GetDefinition returns one definition by ID.
func (r *AchievementRepository) GetDefinition(ctx context.Context, id int) (*achievement.Definition, error) {
	query := `
		SELECT id, name, description, icon, criteria, xp_bonus, created_at
		FROM achievement_definitions
		WHERE id = $1
	`

	var d achievement.Definition
	var criteriaJSON []byte

	err := r.conn.QueryRow(ctx, query, id).Scan(&d.ID, &d.Name, &d.Description, &d.Icon, &criteriaJSON, &d.XPBonus, &d.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAchievementNotFound
		}
		return nil, fmt.Errorf("failed to scan achievement definition: %w", err)
	}

	criteria, err := achievement.ParseCriteria(criteriaJSON)
	if err != nil {
		return nil, fmt.Errorf("achievement %d has invalid criteria: %w", d.ID, err)
	}
	d.Criteria = criteria

	return &d, nil
}

// GetEarnedBy returns a learner's unlock records, oldest first.
func (r *AchievementRepository) GetEarnedBy(ctx context.Context, learnerID string) ([]achievement.Record, error) {
	query := `
		SELECT learner_id, achievement_id, earned_at
		FROM learner_achievements
		WHERE learner_id = $1
		ORDER BY earned_at ASC
	`

	rows, err := r.conn.Query(ctx, query, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query earned achievements: %w", err)
	}
	defer rows.Close()

	var out []achievement.Record
	for rows.Next() {
		var rec achievement.Record
		if err := rows.Scan(&rec.LearnerID, &rec.AchievementID, &rec.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan earned achievement: %w", err)
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// CountEarned returns how many learners have earned the achievement.
func (r *AchievementRepository) CountEarned(ctx context.Context, achievementID int) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM learner_achievements WHERE achievement_id = $1`,
		achievementID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count earned achievements: %w", err)
	}
	return count, nil
}
