package query

import (
	"context"
	"errors"
	"time"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/achievement"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACHIEVEMENTS QUERY
// Lists every achievement definition together with the learner's earned
// status, for the achievements gallery page.
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementsQuery contains the parameters for the gallery view.
type GetAchievementsQuery struct {
	// LearnerID - whose earned set to overlay.
	LearnerID string
}

// Validate validates the query.
func (q GetAchievementsQuery) Validate() error {
	if q.LearnerID == "" {
		return errors.New("get_achievements: learner_id is required")
	}
	return nil
}

// AchievementDTO is one gallery entry.
type AchievementDTO struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	XPBonus     int        `json:"xp_bonus"`
	Earned      bool       `json:"earned"`
	EarnedAt    *time.Time `json:"earned_at,omitempty"`
}

// GetAchievementsResult is the gallery view.
type GetAchievementsResult struct {
	Achievements []AchievementDTO `json:"achievements"`
	EarnedCount  int              `json:"earned_count"`
	TotalCount   int              `json:"total_count"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

// GetAchievementsHandler handles the GetAchievementsQuery.
type GetAchievementsHandler struct {
	achievementRepo achievement.Repository
}

// NewGetAchievementsHandler creates a new GetAchievementsHandler.
func NewGetAchievementsHandler(achievementRepo achievement.Repository) *GetAchievementsHandler {
	return &GetAchievementsHandler{achievementRepo: achievementRepo}
}

// Handle executes the achievements query.
func (h *GetAchievementsHandler) Handle(ctx context.Context, query GetAchievementsQuery) (*GetAchievementsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetAchievements", shared.ErrValidation, "invalid query", err)
	}

	definitions, err := h.achievementRepo.GetDefinitions(ctx)
	if err != nil {
		return nil, err
	}

	records, err := h.achievementRepo.GetEarnedBy(ctx, query.LearnerID)
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}

	earnedAt := make(map[int]time.Time, len(records))
	for _, r := range records {
		earnedAt[r.AchievementID] = r.EarnedAt
	}

	result := &GetAchievementsResult{
		Achievements: make([]AchievementDTO, 0, len(definitions)),
		TotalCount:   len(definitions),
		GeneratedAt:  time.Now().UTC(),
	}

	for _, d := range definitions {
		dto := AchievementDTO{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Icon:        d.Icon,
			XPBonus:     d.XPBonus,
		}
		if at, ok := earnedAt[d.ID]; ok {
			dto.Earned = true
			t := at
			dto.EarnedAt = &t
			result.EarnedCount++
		}
		result.Achievements = append(result.Achievements, dto)
	}

	return result, nil
}
