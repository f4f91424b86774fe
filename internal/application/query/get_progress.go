// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/catalog"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/learner"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Builds the full dashboard view for one learner: XP, level, streak, and
// the learning path with per-lesson status and unlock state. Level and
// progress-to-next-level are derived from total XP at read time, never
// read from a stored column.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery contains the parameters for a progress lookup.
type GetProgressQuery struct {
	// LearnerID - whose progress to fetch.
	LearnerID string
}

// Validate validates the query.
func (q GetProgressQuery) Validate() error {
	if q.LearnerID == "" {
		return errors.New("get_progress: learner_id is required")
	}
	return nil
}

// LessonStatusDTO is the per-lesson view on the learning path.
type LessonStatusDTO struct {
	LessonID   int    `json:"lesson_id"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
	XPReward   int    `json:"xp_reward"`
	Status     string `json:"status"`
	Unlocked   bool   `json:"unlocked"`
	Score      int    `json:"score,omitempty"`
}

// CategoryProgressDTO is the per-category view on the learning path.
type CategoryProgressDTO struct {
	CategoryID       int               `json:"category_id"`
	Name             string            `json:"name"`
	Icon             string            `json:"icon"`
	Unlocked         bool              `json:"unlocked"`
	Completed        bool              `json:"completed"`
	LessonsCompleted int               `json:"lessons_completed"`
	LessonsTotal     int               `json:"lessons_total"`
	Lessons          []LessonStatusDTO `json:"lessons"`
}

// GetProgressResult is the full dashboard view.
type GetProgressResult struct {
	LearnerID        string                `json:"learner_id"`
	DisplayName      string                `json:"display_name"`
	TotalXP          int                   `json:"total_xp"`
	Level            int                   `json:"level"`
	XPIntoLevel      int                   `json:"xp_into_level"`
	XPForNextLevel   int                   `json:"xp_for_next_level"`
	CurrentStreak    int                   `json:"current_streak"`
	BestStreak       int                   `json:"best_streak"`
	LastActivityDate *time.Time            `json:"last_activity_date,omitempty"`
	LessonsCompleted int                   `json:"lessons_completed"`
	Achievements     int                   `json:"achievements_earned"`
	Categories       []CategoryProgressDTO `json:"categories"`
	GeneratedAt      time.Time             `json:"generated_at"`
}

// GetProgressHandler handles the GetProgressQuery.
type GetProgressHandler struct {
	learnerRepo  learner.Repository
	progressRepo learner.ProgressRepository
	catalogRepo  catalog.Repository
}

// NewGetProgressHandler creates a new GetProgressHandler.
func NewGetProgressHandler(
	learnerRepo learner.Repository,
	progressRepo learner.ProgressRepository,
	catalogRepo catalog.Repository,
) *GetProgressHandler {
	return &GetProgressHandler{
		learnerRepo:  learnerRepo,
		progressRepo: progressRepo,
		catalogRepo:  catalogRepo,
	}
}

// Handle executes the progress query.
func (h *GetProgressHandler) Handle(ctx context.Context, query GetProgressQuery) (*GetProgressResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetProgress", shared.ErrValidation, "invalid query", err)
	}

	l, err := h.learnerRepo.GetByID(ctx, query.LearnerID)
	if err != nil {
		return nil, err
	}

	rec, err := h.progressRepo.Get(ctx, query.LearnerID)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, err
		}
		// No activity yet: an empty record renders a fresh dashboard.
		rec = learner.NewProgressRecord(query.LearnerID)
	}

	path, err := h.catalogRepo.GetPath(ctx)
	if err != nil {
		return nil, err
	}

	completed := rec.CompletedLessonIDSet()

	result := &GetProgressResult{
		LearnerID:        l.ID,
		DisplayName:      l.DisplayName,
		TotalXP:          int(rec.TotalXP),
		Level:            int(rec.CurrentLevel()),
		XPIntoLevel:      int(learner.XPIntoLevel(rec.TotalXP)),
		XPForNextLevel:   int(learner.XPForNextLevel(rec.TotalXP)),
		CurrentStreak:    rec.CurrentStreak,
		BestStreak:       rec.BestStreak,
		LessonsCompleted: rec.LessonsCompletedCount(),
		Achievements:     rec.AchievementsEarnedCount(),
		GeneratedAt:      time.Now().UTC(),
	}
	if !rec.LastActivityDate.IsZero() {
		d := rec.LastActivityDate
		result.LastActivityDate = &d
	}

	for _, cat := range path.Categories() {
		lessons := path.LessonsIn(cat.ID)
		dto := CategoryProgressDTO{
			CategoryID:   cat.ID,
			Name:         cat.Name,
			Icon:         cat.Icon,
			Unlocked:     path.IsCategoryUnlocked(cat.ID, completed),
			Completed:    path.IsCategoryCompleted(cat.ID, completed),
			LessonsTotal: len(lessons),
			Lessons:      make([]LessonStatusDTO, 0, len(lessons)),
		}

		for _, les := range lessons {
			status := string(learner.LessonNotStarted)
			score := 0
			if lp, ok := rec.LessonProgressFor(les.ID); ok {
				status = string(lp.Status)
				score = lp.Score
			}
			if _, done := completed[les.ID]; done {
				dto.LessonsCompleted++
			}

			dto.Lessons = append(dto.Lessons, LessonStatusDTO{
				LessonID:   les.ID,
				Title:      les.Title,
				Difficulty: string(les.Difficulty),
				XPReward:   les.XPReward,
				Status:     status,
				Unlocked:   path.IsLessonUnlocked(les.ID, completed),
				Score:      score,
			})
		}

		result.Categories = append(result.Categories, dto)
	}

	return result, nil
}
