package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/achievement"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/learner"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/catalog"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD QUIZ ATTEMPT COMMAND
// Quiz and mini-game attempts are append-only history. Every attempt grants
// floor(score/10) XP - unlike lessons, repeats keep paying. The attempt also
// counts as daily activity, so it feeds the streak and can unlock
// streak-based achievements.
// ══════════════════════════════════════════════════════════════════════════════

// GameMode enumerates the supported mini-games.
type GameMode string

const (
	GameModeQuiz             GameMode = "quiz"
	GameModeCarbonCalculator GameMode = "carbon-calculator"
	GameModeGreenSweep       GameMode = "green-sweep"
	GameModeEcoMatch         GameMode = "eco-match"
)

// IsValid checks that the game mode is known.
func (g GameMode) IsValid() bool {
	switch g {
	case GameModeQuiz, GameModeCarbonCalculator, GameModeGreenSweep, GameModeEcoMatch:
		return true
	default:
		return false
	}
}

// RecordQuizAttemptCommand contains the data for one attempt.
type RecordQuizAttemptCommand struct {
	// LearnerID - who played.
	LearnerID string

	// GameMode - which game.
	GameMode GameMode

	// Score - final score.
	Score int

	// TotalQuestions - questions asked (0 for non-question games).
	TotalQuestions int

	// CorrectAnswers - questions answered correctly.
	CorrectAnswers int

	// TimeTakenSeconds - duration of the attempt.
	TimeTakenSeconds int

	// Timestamp - when the attempt finished (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the command. Scores are stored as reported - the
// games own their scoring, this service only converts score to XP.
func (c RecordQuizAttemptCommand) Validate() error {
	if c.LearnerID == "" {
		return errors.New("record_quiz_attempt: learner_id is required")
	}
	if !c.GameMode.IsValid() {
		return fmt.Errorf("record_quiz_attempt: unknown game mode: %s", c.GameMode)
	}
	if c.Score < 0 {
		return errors.New("record_quiz_attempt: score cannot be negative")
	}
	return nil
}

// RecordQuizAttemptResult contains the outcome of recording an attempt.
type RecordQuizAttemptResult struct {
	// LearnerID - who played.
	LearnerID string `json:"learner_id"`

	// GameMode - which game.
	GameMode GameMode `json:"game_mode"`

	// Score - the recorded score.
	Score int `json:"score"`

	// XPEarned - total XP granted, attempt XP plus achievement bonuses.
	XPEarned int `json:"xp_earned"`

	// TotalXP - lifetime XP after the command.
	TotalXP int `json:"total_xp"`

	// Level - level after the command.
	Level int `json:"level"`

	// LeveledUp - true when the level increased.
	LeveledUp bool `json:"leveled_up"`

	// CurrentStreak - streak after the command.
	CurrentStreak int `json:"current_streak"`

	// BestStreak - best streak after the command.
	BestStreak int `json:"best_streak"`

	// StreakExtended - true when the streak grew today.
	StreakExtended bool `json:"streak_extended"`

	// UnlockedAchievements - achievements earned by this attempt.
	UnlockedAchievements []UnlockedAchievementDTO `json:"unlocked_achievements"`

	// RecordedAt - when the attempt was recorded.
	RecordedAt time.Time `json:"recorded_at"`
}

// RecordQuizAttemptHandler handles the RecordQuizAttemptCommand.
type RecordQuizAttemptHandler struct {
	learnerRepo     learner.Repository
	progressRepo    learner.ProgressRepository
	catalogRepo     catalog.Repository
	achievementRepo achievement.Repository
	eventPublisher  shared.EventPublisher
}

// NewRecordQuizAttemptHandler creates a new RecordQuizAttemptHandler.
func NewRecordQuizAttemptHandler(
	learnerRepo learner.Repository,
	progressRepo learner.ProgressRepository,
	catalogRepo catalog.Repository,
	achievementRepo achievement.Repository,
	eventPublisher shared.EventPublisher,
) *RecordQuizAttemptHandler {
	return &RecordQuizAttemptHandler{
		learnerRepo:     learnerRepo,
		progressRepo:    progressRepo,
		catalogRepo:     catalogRepo,
		achievementRepo: achievementRepo,
		eventPublisher:  eventPublisher,
	}
}

// Handle executes the record quiz attempt command.
func (h *RecordQuizAttemptHandler) Handle(ctx context.Context, cmd RecordQuizAttemptCommand) (*RecordQuizAttemptResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("learner", "RecordQuizAttempt", shared.ErrValidation, "invalid command", err)
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	if _, err := h.learnerRepo.GetByID(ctx, cmd.LearnerID); err != nil {
		return nil, fmt.Errorf("record_quiz_attempt: %w", err)
	}

	path, err := h.catalogRepo.GetPath(ctx)
	if err != nil {
		return nil, fmt.Errorf("record_quiz_attempt: load catalog: %w", err)
	}

	definitions, err := h.achievementRepo.GetDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("record_quiz_attempt: load achievements: %w", err)
	}
	evaluator := achievement.NewEvaluator(definitions)

	result := &RecordQuizAttemptResult{
		LearnerID:            cmd.LearnerID,
		GameMode:             cmd.GameMode,
		Score:                cmd.Score,
		RecordedAt:           timestamp,
		UnlockedAchievements: make([]UnlockedAchievementDTO, 0),
	}
	var events []shared.Event
	var streak learner.StreakUpdate

	_, err = h.progressRepo.Update(ctx, cmd.LearnerID, func(rec *learner.ProgressRecord) error {
		levelBefore := rec.CurrentLevel()

		attempt := rec.RecordQuizAttempt(string(cmd.GameMode), cmd.Score, cmd.TotalQuestions, cmd.CorrectAnswers, cmd.TimeTakenSeconds, timestamp)
		result.XPEarned = int(attempt.XPEarned)

		events = append(events, shared.NewQuizAttemptedEvent(cmd.LearnerID, string(cmd.GameMode), cmd.Score, int(attempt.XPEarned)))
		if attempt.XPEarned > 0 {
			events = append(events, shared.NewXPGainedEvent(cmd.LearnerID, int(attempt.XPEarned), int(rec.TotalXP), "quiz_attempt"))
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
	if streak.Extended {
		events = append(events, shared.NewStreakExtendedEvent(cmd.LearnerID, streak.CurrentStreak, streak.BestStreak))
	}
	if streak.Broken {
		events = append(events, shared.NewStreakBrokenEvent(cmd.LearnerID, streak.PreviousStreak, streak.DaysMissed))
	}

	for _, e := range events {
		_ = h.eventPublisher.Publish(e)
	}

	return result, nil
}
