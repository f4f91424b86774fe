package learner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateLevel(t *testing.T) {
	tests := []struct {
		name string
		xp   XP
		want Level
	}{
		{"zero xp is level 1", 0, 1},
		{"just below threshold", 499, 1},
		{"exactly one level", 500, 2},
		{"just above threshold", 501, 2},
		{"several levels", 2750, 6},
		{"negative clamps to level 1", -10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateLevel(tt.xp))
		})
	}
}

func TestXPForNextLevel(t *testing.T) {
	assert.Equal(t, XP(500), XPForNextLevel(0))
	assert.Equal(t, XP(1), XPForNextLevel(499))
	assert.Equal(t, XP(500), XPForNextLevel(500))
	assert.Equal(t, XP(150), XPIntoLevel(650))
}

func TestQuizAttemptXP(t *testing.T) {
	assert.Equal(t, XP(8), QuizAttemptXP(87))
	assert.Equal(t, XP(10), QuizAttemptXP(100))
	assert.Equal(t, XP(0), QuizAttemptXP(9))
	assert.Equal(t, XP(0), QuizAttemptXP(-5))
}

func TestCompleteLesson_FirstTimeGrantsXP(t *testing.T) {
	rec := NewProgressRecord("learner-1")
	now := day(2026, time.April, 1)

	gained, first := rec.CompleteLesson(3, 50, 90, 120, now)

	assert.True(t, first)
	assert.Equal(t, XP(50), gained)
	assert.Equal(t, XP(50), rec.TotalXP)
	assert.Equal(t, 1, rec.LessonsCompletedCount())
	assert.True(t, rec.HasCompletedLesson(3))

	lp, ok := rec.LessonProgressFor(3)
	assert.True(t, ok)
	assert.Equal(t, LessonCompleted, lp.Status)
	assert.Equal(t, 90, lp.Score)
	assert.Equal(t, now, lp.CompletedAt)
}

func TestCompleteLesson_RepeatIsIdempotentForXP(t *testing.T) {
	rec := NewProgressRecord("learner-1")
	first := day(2026, time.April, 1)
	later := day(2026, time.April, 5)

	rec.CompleteLesson(3, 50, 60, 100, first)
	gained, isFirst := rec.CompleteLesson(3, 50, 95, 80, later)

	assert.False(t, isFirst)
	assert.Equal(t, XP(0), gained, "re-completion grants no XP")
	assert.Equal(t, XP(50), rec.TotalXP)
	assert.Equal(t, 1, rec.LessonsCompletedCount())

	// Score and time are refreshed, first completion time is kept.
	lp, _ := rec.LessonProgressFor(3)
	assert.Equal(t, 95, lp.Score)
	assert.Equal(t, 80, lp.TimeSpentSeconds)
	assert.Equal(t, first, lp.CompletedAt)
}

func TestRecordQuizAttempt_EveryAttemptGrantsXP(t *testing.T) {
	rec := NewProgressRecord("learner-1")
	now := day(2026, time.April, 1)

	a1 := rec.RecordQuizAttempt("quiz", 87, 10, 8, 60, now)
	a2 := rec.RecordQuizAttempt("quiz", 87, 10, 8, 55, now)

	assert.Equal(t, XP(8), a1.XPEarned)
	assert.Equal(t, XP(8), a2.XPEarned)
	assert.Equal(t, XP(16), rec.TotalXP, "quiz XP is repeatable")
	assert.Len(t, rec.NewQuizAttempts(), 2)
}

func TestGrantAchievement_Idempotent(t *testing.T) {
	rec := NewProgressRecord("learner-1")
	now := day(2026, time.April, 1)

	granted := rec.GrantAchievement(2, 100, now)
	again := rec.GrantAchievement(2, 100, now)

	assert.True(t, granted)
	assert.False(t, again)
	assert.Equal(t, XP(100), rec.TotalXP, "bonus applied exactly once")
	assert.Equal(t, 1, rec.AchievementsEarnedCount())
	assert.True(t, rec.HasAchievement(2))
}

func TestAchievementBonusCanLevelUp(t *testing.T) {
	rec := NewProgressRecord("learner-1")
	now := day(2026, time.April, 1)

	rec.CompleteLesson(1, 450, 100, 60, now)
	assert.Equal(t, Level(1), rec.CurrentLevel())

	rec.GrantAchievement(1, 100, now)
	assert.Equal(t, Level(2), rec.CurrentLevel())
}

func TestRecordActivity_AppliesStreakRules(t *testing.T) {
	rec := NewProgressRecord("learner-1")

	u := rec.RecordActivity(day(2026, time.April, 1))
	assert.Equal(t, 1, rec.CurrentStreak)
	assert.True(t, u.Extended)

	rec.RecordActivity(day(2026, time.April, 2))
	assert.Equal(t, 2, rec.CurrentStreak)
	assert.Equal(t, 2, rec.BestStreak)

	u = rec.RecordActivity(day(2026, time.April, 6))
	assert.Equal(t, 1, rec.CurrentStreak)
	assert.Equal(t, 2, rec.BestStreak)
	assert.True(t, u.Broken)
	assert.Equal(t, 3, u.DaysMissed)
}

func TestPendingChanges_TrackedAndCleared(t *testing.T) {
	rec := NewProgressRecord("learner-1")
	now := day(2026, time.April, 1)

	rec.CompleteLesson(1, 50, 80, 60, now)
	rec.CompleteLesson(2, 50, 70, 90, now)
	rec.RecordQuizAttempt("eco-match", 40, 10, 4, 30, now)
	rec.GrantAchievement(1, 50, now)

	assert.Len(t, rec.TouchedLessonProgress(), 2)
	assert.Len(t, rec.NewQuizAttempts(), 1)
	assert.Len(t, rec.NewlyEarnedAchievements(), 1)

	rec.ClearPending()

	assert.Empty(t, rec.TouchedLessonProgress())
	assert.Empty(t, rec.NewQuizAttempts())
	assert.Empty(t, rec.NewlyEarnedAchievements())
	// The underlying state survives the clear.
	assert.Equal(t, 2, rec.LessonsCompletedCount())
	assert.Equal(t, 1, rec.AchievementsEarnedCount())
}

func TestRestoreProgressRecord(t *testing.T) {
	completions := []LessonProgress{
		{LearnerID: "learner-1", LessonID: 1, Status: LessonCompleted, Score: 90},
		{LearnerID: "learner-1", LessonID: 4, Status: LessonInProgress},
	}
	earned := []EarnedAchievement{{AchievementID: 1, EarnedAt: day(2026, time.April, 1)}}

	rec := RestoreProgressRecord("learner-1", 1250, 3, 7,
		day(2026, time.April, 2), day(2026, time.April, 2), completions, earned)

	assert.Equal(t, Level(3), rec.CurrentLevel())
	assert.Equal(t, 1, rec.LessonsCompletedCount(), "in-progress lessons do not count")
	assert.Equal(t, []int{1}, rec.CompletedLessonIDs())
	assert.True(t, rec.HasAchievement(1))
	assert.Empty(t, rec.TouchedLessonProgress(), "restored record starts with no pending changes")
}

func TestNewLearner_Validation(t *testing.T) {
	params := NewLearnerParams{
		ID:           "learner-1",
		Email:        "eco@example.com",
		PasswordHash: "$2a$10$hash",
		DisplayName:  "  Terra  ",
	}

	l, err := NewLearner(params)
	assert.NoError(t, err)
	assert.Equal(t, "Terra", l.DisplayName)

	bad := params
	bad.Email = "not-an-email"
	_, err = NewLearner(bad)
	assert.ErrorIs(t, err, ErrInvalidEmail)

	bad = params
	bad.DisplayName = " "
	_, err = NewLearner(bad)
	assert.ErrorIs(t, err, ErrInvalidDisplayName)
}
