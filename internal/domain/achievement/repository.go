package achievement

import (
	"context"
)

// Repository defines persistence for achievement definitions and the
// per-learner unlock records. Definitions are seeded by migrations;
// unlock rows are written by the progress transaction, not here.
type Repository interface {
	// GetDefinitions returns all achievement definitions in ID order.
	GetDefinitions(ctx context.Context) ([]Definition, error)

	// GetDefinition finds one definition by ID.
	GetDefinition(ctx context.Context, id int) (*Definition, error)

	// GetEarnedBy returns a learner's unlock records, oldest first.
	GetEarnedBy(ctx context.Context, learnerID string) ([]Record, error)

	// CountEarned returns how many learners have earned the achievement.
	CountEarned(ctx context.Context, achievementID int) (int, error)
}
