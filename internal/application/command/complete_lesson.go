package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/achievement"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/catalog"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/learner"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE LESSON COMMAND
// The central write path. One command applies, in a single transaction:
// the lesson completion (XP on first completion only), the streak update,
// and the achievement sweep. Achievement XP bonuses land inside the same
// transaction, so the level is re-derived after they are granted - a bonus
// can push the learner over a level boundary.
// ══════════════════════════════════════════════════════════════════════════════

// ErrLessonLocked - the lesson's prerequisites are not met yet.
var ErrLessonLocked = errors.New("lesson is locked")

// CompleteLessonCommand contains the data for a lesson completion.
type CompleteLessonCommand struct {
	// LearnerID - who completed the lesson.
	LearnerID string

	// LessonID - which lesson.
	LessonID int

	// Score - reported score for this pass.
	Score int

	// TimeSpentSeconds - reported time for this pass.
	TimeSpentSeconds int

	// Timestamp - when the completion happened (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the command.
func (c CompleteLessonCommand) Validate() error {
	if c.LearnerID == "" {
		return errors.New("complete_lesson: learner_id is required")
	}
	if c.LessonID < 1 {
		return errors.New("complete_lesson: lesson_id is required")
	}
	return nil
}

// UnlockedAchievementDTO describes one achievement earned by the command.
type UnlockedAchievementDTO struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	XPBonus int    `json:"xp_bonus"`
}

// CompleteLessonResult contains the outcome of a lesson completion.
type CompleteLessonResult struct {
	// LearnerID - who completed the lesson.
	LearnerID string `json:"learner_id"`

	// LessonID - which lesson.
	LessonID int `json:"lesson_id"`

	// FirstCompletion - true when the lesson was completed for the first time.
	FirstCompletion bool `json:"first_completion"`

	// XPEarned - total XP granted, lesson reward plus achievement bonuses.
	XPEarned int `json:"xp_earned"`

	// TotalXP - lifetime XP after the command.
	TotalXP int `json:"total_xp"`

	// Level - level after the command, bonuses included.
	Level int `json:"level"`

	// LeveledUp - true when the level increased.
	LeveledUp bool `json:"leveled_up"`

	// CurrentStreak - streak after the command.
	CurrentStreak int `json:"current_streak"`

	// BestStreak - best streak after the command.
	BestStreak int `json:"best_streak"`

	// StreakExtended - true when the streak grew today.
	StreakExtended bool `json:"streak_extended"`

	// StreakBroken - true when a previous streak reset today.
	StreakBroken bool `json:"streak_broken"`

	// UnlockedAchievements - achievements earned by this completion.
	UnlockedAchievements []UnlockedAchievementDTO `json:"unlocked_achievements"`

	// CompletedAt - effective completion time.
	CompletedAt time.Time `json:"completed_at"`
}

// CompleteLessonHandler handles the CompleteLessonCommand.
type CompleteLessonHandler struct {
	learnerRepo     learner.Repository
	progressRepo    learner.ProgressRepository
	catalogRepo     catalog.Repository
	achievementRepo achievement.Repository
	eventPublisher  shared.EventPublisher
}

// NewCompleteLessonHandler creates a new CompleteLessonHandler.
func NewCompleteLessonHandler(
	learnerRepo learner.Repository,
	progressRepo learner.ProgressRepository,
	catalogRepo catalog.Repository,
	achievementRepo achievement.Repository,
	eventPublisher shared.EventPublisher,
) *CompleteLessonHandler {
	return &CompleteLessonHandler{
		learnerRepo:     learnerRepo,
		progressRepo:    progressRepo,
		catalogRepo:     catalogRepo,
		achievementRepo: achievementRepo,
		eventPublisher:  eventPublisher,
	}
}

// Handle executes the complete lesson command.
func (h *CompleteLessonHandler) Handle(ctx context.Context, cmd CompleteLessonCommand) (*CompleteLessonResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("learner", "CompleteLesson", shared.ErrValidation, "invalid command", err)
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	if _, err := h.learnerRepo.GetByID(ctx, cmd.LearnerID); err != nil {
		return nil, fmt.Errorf("complete_lesson: %w", err)
	}

	path, err := h.catalogRepo.GetPath(ctx)
	if err != nil {
		return nil, fmt.Errorf("complete_lesson: load catalog: %w", err)
	}
	lesson, ok := path.Lesson(cmd.LessonID)
	if !ok {
		return nil, shared.ErrLessonNotFound
	}

	definitions, err := h.achievementRepo.GetDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("complete_lesson: load achievements: %w", err)
	}
	evaluator := achievement.NewEvaluator(definitions)

	result := &CompleteLessonResult{
		LearnerID:            cmd.LearnerID,
		LessonID:             cmd.LessonID,
		CompletedAt:          timestamp,
		UnlockedAchievements: make([]UnlockedAchievementDTO, 0),
	}
	var events []shared.Event
	var streak learner.StreakUpdate

	_, err = h.progressRepo.Update(ctx, cmd.LearnerID, func(rec *learner.ProgressRecord) error {
		// The unlock check runs under the per-learner lock so a
		// concurrent completion cannot open the gate mid-flight.
		if !path.IsLessonUnlocked(cmd.LessonID, rec.CompletedLessonIDSet()) {
			return ErrLessonLocked
		}

		levelBefore := rec.CurrentLevel()

		gained, first := rec.CompleteLesson(cmd.LessonID, learner.XP(lesson.XPReward), cmd.Score, cmd.TimeSpentSeconds, timestamp)
		result.FirstCompletion = first
		result.XPEarned = int(gained)

		if first {
			events = append(events, shared.NewLessonCompletedEvent(cmd.LearnerID, lesson.ID, lesson.CategoryID, int(gained)))
			events = append(events, shared.NewXPGainedEvent(cmd.LearnerID, int(gained), int(rec.TotalXP), "lesson_completion"))
		}

		streak = rec.RecordActivity(timestamp)

		unlocked := sweepAchievements(rec, evaluator, path, streak.CurrentStreak, timestamp)
		for _, d := range unlocked {
			result.XPEarned += d.XPBonus
			result.UnlockedAchievements = append(result.UnlockedAchievements, UnlockedAchievementDTO{
				ID: d.ID, Name: d.Name, Icon: d.Icon, XPBonus: d.XPBonus,
			})
			events = append(events, shared.NewAchievementUnlockedEvent(cmd.LearnerID, d.ID, d.Name, d.XPBonus))
			if d.XPBonus > 0 {
				events = append(events, shared.NewXPGainedEvent(cmd.LearnerID, d.XPBonus, int(rec.TotalXP), "achievement_bonus"))
			}
		}

		// Level check runs last: achievement bonuses count.
		levelAfter := rec.CurrentLevel()
		if levelAfter > levelBefore {
			result.LeveledUp = true
			events = append(events, shared.NewLevelUpEvent(cmd.LearnerID, int(levelBefore), int(levelAfter)))
		}

		result.TotalXP = int(rec.TotalXP)
		result.Level = int(levelAfter)
		result.CurrentStreak = rec.CurrentStreak
		result.BestStreak = rec.BestStreak

		return nil
	})
	if err != nil {
		return nil, err
	}

	result.StreakExtended = streak.Extended
	result.StreakBroken = streak.Broken
	if streak.Extended {
		events = append(events, shared.NewStreakExtendedEvent(cmd.LearnerID, streak.CurrentStreak, streak.BestStreak))
	}
	if streak.Broken {
		events = append(events, shared.NewStreakBrokenEvent(cmd.LearnerID, streak.PreviousStreak, streak.DaysMissed))
	}

	// Events go out only after the transaction committed.
	for _, e := range events {
		_ = h.eventPublisher.Publish(e)
	}

	return result, nil
}

// sweepAchievements evaluates and grants every newly satisfied achievement.
// Shared by the lesson and quiz commands.
func sweepAchievements(
	rec *learner.ProgressRecord,
	evaluator *achievement.Evaluator,
	path *catalog.Path,
	currentStreak int,
	now time.Time,
) []achievement.Definition {
	earned := make(map[int]struct{})
	for _, id := range rec.EarnedAchievementIDs() {
		earned[id] = struct{}{}
	}

	snap := achievement.Snapshot{
		LessonsCompleted:    rec.LessonsCompletedCount(),
		CurrentStreak:       currentStreak,
		CompletedLessonIDs:  rec.CompletedLessonIDSet(),
		LessonIDsByCategory: path.LessonIDsByCategory(),
	}

	newly := evaluator.Evaluate(snap, earned)
	for _, d := range newly {
		rec.GrantAchievement(d.ID, learner.XP(d.XPBonus), now)
	}
	return newly
}
