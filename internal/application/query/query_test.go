package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/achievement"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/catalog"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/learner"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeLearnerRepo struct {
	byID map[string]*learner.Learner
}

func (r *fakeLearnerRepo) Create(_ context.Context, l *learner.Learner) error {
	r.byID[l.ID] = l
	return nil
}

func (r *fakeLearnerRepo) GetByID(_ context.Context, id string) (*learner.Learner, error) {
	l, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrLearnerNotFound
	}
	return l, nil
}

func (r *fakeLearnerRepo) GetByEmail(_ context.Context, _ learner.Email) (*learner.Learner, error) {
	return nil, shared.ErrLearnerNotFound
}

func (r *fakeLearnerRepo) Update(_ context.Context, l *learner.Learner) error {
	r.byID[l.ID] = l
	return nil
}

func (r *fakeLearnerRepo) Count(_ context.Context) (int, error) {
	return len(r.byID), nil
}

type fakeProgressRepo struct {
	records  map[string]*learner.ProgressRecord
	attempts []learner.QuizAttempt
	top      []learner.LeaderboardRow
	topErr   error
}

func (r *fakeProgressRepo) Get(_ context.Context, learnerID string) (*learner.ProgressRecord, error) {
	rec, ok := r.records[learnerID]
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	return rec, nil
}

func (r *fakeProgressRepo) Update(_ context.Context, learnerID string, fn func(rec *learner.ProgressRecord) error) (*learner.ProgressRecord, error) {
	rec, ok := r.records[learnerID]
	if !ok {
		rec = learner.NewProgressRecord(learnerID)
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	r.records[learnerID] = rec
	return rec, nil
}

func (r *fakeProgressRepo) QuizAttempts(_ context.Context, learnerID string, limit int) ([]learner.QuizAttempt, error) {
	out := make([]learner.QuizAttempt, 0, limit)
	for _, a := range r.attempts {
		if a.LearnerID != learnerID {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeProgressRepo) TopByXP(_ context.Context, limit int) ([]learner.LeaderboardRow, error) {
	if r.topErr != nil {
		return nil, r.topErr
	}
	if limit > len(r.top) {
		limit = len(r.top)
	}
	return r.top[:limit], nil
}

func (r *fakeProgressRepo) StreaksAtRisk(_ context.Context, _ time.Time) ([]learner.StreakAtRisk, error) {
	return nil, nil
}

type fakeLeaderboardCache struct {
	top   []learner.LeaderboardRow
	ranks map[string]int
	err   error
}

func (c *fakeLeaderboardCache) GetTop(_ context.Context, limit int) ([]learner.LeaderboardRow, error) {
	if c.err != nil {
		return nil, c.err
	}
	if limit > len(c.top) {
		limit = len(c.top)
	}
	return c.top[:limit], nil
}

func (c *fakeLeaderboardCache) GetRank(_ context.Context, learnerID string) (int, error) {
	rank, ok := c.ranks[learnerID]
	if !ok {
		return 0, errors.New("not ranked")
	}
	return rank, nil
}

type fakeCatalogRepo struct {
	path *catalog.Path
}

func (r *fakeCatalogRepo) GetCategories(_ context.Context) ([]catalog.Category, error) {
	return r.path.Categories(), nil
}

func (r *fakeCatalogRepo) GetCategory(_ context.Context, _ int) (*catalog.Category, error) {
	return nil, shared.ErrCategoryNotFound
}

func (r *fakeCatalogRepo) GetLessons(_ context.Context) ([]catalog.Lesson, error) {
	return nil, nil
}

func (r *fakeCatalogRepo) GetLessonsByCategory(_ context.Context, categoryID int) ([]catalog.Lesson, error) {
	return r.path.LessonsIn(categoryID), nil
}

func (r *fakeCatalogRepo) GetLesson(_ context.Context, id int) (*catalog.Lesson, error) {
	l, ok := r.path.Lesson(id)
	if !ok {
		return nil, shared.ErrLessonNotFound
	}
	return &l, nil
}

func (r *fakeCatalogRepo) GetPath(_ context.Context) (*catalog.Path, error) {
	return r.path, nil
}

type fakeAchievementRepo struct {
	definitions []achievement.Definition
	earned      map[string][]achievement.Record
}

func (r *fakeAchievementRepo) GetDefinitions(_ context.Context) ([]achievement.Definition, error) {
	return r.definitions, nil
}

func (r *fakeAchievementRepo) GetDefinition(_ context.Context, _ int) (*achievement.Definition, error) {
	return nil, shared.ErrAchievementNotFound
}

func (r *fakeAchievementRepo) GetEarnedBy(_ context.Context, learnerID string) ([]achievement.Record, error) {
	return r.earned[learnerID], nil
}

func (r *fakeAchievementRepo) CountEarned(_ context.Context, _ int) (int, error) {
	return 0, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// GetProgress
// ─────────────────────────────────────────────────────────────────────────────

func newTestPath() *catalog.Path {
	return catalog.NewPath(
		[]catalog.Category{
			{ID: 1, Name: "Climate Basics", SortOrder: 1},
			{ID: 2, Name: "Renewable Energy", SortOrder: 2},
		},
		[]catalog.Lesson{
			{ID: 1, CategoryID: 1, Title: "What Is Climate?", XPReward: 50, SortOrder: 1},
			{ID: 2, CategoryID: 1, Title: "The Greenhouse Effect", XPReward: 75, SortOrder: 2},
			{ID: 3, CategoryID: 2, Title: "Solar Power", XPReward: 50, SortOrder: 1},
		},
	)
}

func newTestLearner(t *testing.T, id string) *learner.Learner {
	t.Helper()
	l, err := learner.NewLearner(learner.NewLearnerParams{
		ID:           id,
		Email:        learner.Email(id + "@example.com"),
		PasswordHash: "hash",
		DisplayName:  "Terra",
	})
	require.NoError(t, err)
	return l
}

func TestGetProgress_FreshLearner(t *testing.T) {
	learners := &fakeLearnerRepo{byID: map[string]*learner.Learner{}}
	progress := &fakeProgressRepo{records: map[string]*learner.ProgressRecord{}}
	catalogRepo := &fakeCatalogRepo{path: newTestPath()}

	require.NoError(t, learners.Create(context.Background(), newTestLearner(t, "learner-1")))

	h := NewGetProgressHandler(learners, progress, catalogRepo)
	res, err := h.Handle(context.Background(), GetProgressQuery{LearnerID: "learner-1"})
	require.NoError(t, err)

	assert.Equal(t, 0, res.TotalXP)
	assert.Equal(t, 1, res.Level)
	assert.Equal(t, 500, res.XPForNextLevel)
	assert.Equal(t, 0, res.CurrentStreak)
	assert.Nil(t, res.LastActivityDate)
	require.Len(t, res.Categories, 2)

	// First category and its first lesson open; everything behind them locked.
	first := res.Categories[0]
	assert.True(t, first.Unlocked)
	assert.True(t, first.Lessons[0].Unlocked)
	assert.False(t, first.Lessons[1].Unlocked)
	assert.False(t, res.Categories[1].Unlocked)
}

func TestGetProgress_DerivesLevelFromXP(t *testing.T) {
	learners := &fakeLearnerRepo{byID: map[string]*learner.Learner{}}
	progress := &fakeProgressRepo{records: map[string]*learner.ProgressRecord{}}
	catalogRepo := &fakeCatalogRepo{path: newTestPath()}

	require.NoError(t, learners.Create(context.Background(), newTestLearner(t, "learner-1")))

	ts := time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)
	_, err := progress.Update(context.Background(), "learner-1", func(rec *learner.ProgressRecord) error {
		rec.CompleteLesson(1, 50, 90, 120, ts)
		rec.TotalXP = 1250
		return nil
	})
	require.NoError(t, err)

	h := NewGetProgressHandler(learners, progress, catalogRepo)
	res, err := h.Handle(context.Background(), GetProgressQuery{LearnerID: "learner-1"})
	require.NoError(t, err)

	assert.Equal(t, 1250, res.TotalXP)
	assert.Equal(t, 3, res.Level)
	assert.Equal(t, 250, res.XPIntoLevel)
	assert.Equal(t, 250, res.XPForNextLevel)
	assert.Equal(t, 1, res.LessonsCompleted)

	// Lesson 1 done unlocks lesson 2; category 2 stays gated.
	assert.Equal(t, "completed", res.Categories[0].Lessons[0].Status)
	assert.True(t, res.Categories[0].Lessons[1].Unlocked)
	assert.False(t, res.Categories[1].Unlocked)
}

func TestGetProgress_UnknownLearner(t *testing.T) {
	h := NewGetProgressHandler(
		&fakeLearnerRepo{byID: map[string]*learner.Learner{}},
		&fakeProgressRepo{records: map[string]*learner.ProgressRecord{}},
		&fakeCatalogRepo{path: newTestPath()},
	)

	_, err := h.Handle(context.Background(), GetProgressQuery{LearnerID: "ghost"})
	assert.True(t, shared.IsNotFound(err))

	_, err = h.Handle(context.Background(), GetProgressQuery{})
	assert.True(t, shared.IsValidation(err))
}

// ─────────────────────────────────────────────────────────────────────────────
// GetLeaderboard
// ─────────────────────────────────────────────────────────────────────────────

func leaderboardRows() []learner.LeaderboardRow {
	return []learner.LeaderboardRow{
		{LearnerID: "a", DisplayName: "Ada", TotalXP: 1500, Level: 4},
		{LearnerID: "b", DisplayName: "Ben", TotalXP: 900, Level: 2},
		{LearnerID: "c", DisplayName: "Cleo", TotalXP: 400, Level: 1},
	}
}

func TestGetLeaderboard_ServedFromCache(t *testing.T) {
	h := NewGetLeaderboardHandler(
		&fakeProgressRepo{records: map[string]*learner.ProgressRecord{}},
		&fakeLeaderboardCache{top: leaderboardRows()},
	)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{Limit: 2})
	require.NoError(t, err)

	assert.True(t, res.FromCache)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, 1, res.Entries[0].Rank)
	assert.Equal(t, "Ada", res.Entries[0].DisplayName)
	assert.Equal(t, 2, res.Entries[1].Rank)
}

func TestGetLeaderboard_FallsBackToStore(t *testing.T) {
	progress := &fakeProgressRepo{
		records: map[string]*learner.ProgressRecord{},
		top:     leaderboardRows(),
	}
	h := NewGetLeaderboardHandler(progress, &fakeLeaderboardCache{err: errors.New("redis down")})

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{Limit: 3})
	require.NoError(t, err)

	assert.False(t, res.FromCache)
	require.Len(t, res.Entries, 3)
	assert.Equal(t, "c", res.Entries[2].LearnerID)
}

func TestGetLeaderboard_NilCacheAndLimits(t *testing.T) {
	progress := &fakeProgressRepo{
		records: map[string]*learner.ProgressRecord{},
		top:     leaderboardRows(),
	}
	h := NewGetLeaderboardHandler(progress, nil)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Len(t, res.Entries, 3, "default limit of 20 exceeds available rows")

	_, err = h.Handle(context.Background(), GetLeaderboardQuery{Limit: -1})
	assert.True(t, shared.IsValidation(err))
}

func TestGetLeaderboard_StoreErrorSurfaces(t *testing.T) {
	progress := &fakeProgressRepo{topErr: errors.New("connection reset")}

	// No cache at all: the store failure must reach the caller,
	// never an empty 200 board.
	h := NewGetLeaderboardHandler(progress, nil)
	_, err := h.Handle(context.Background(), GetLeaderboardQuery{Limit: 10})
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection reset")

	// Same when the cache exists but misses.
	h = NewGetLeaderboardHandler(progress, &fakeLeaderboardCache{err: errors.New("redis down")})
	_, err = h.Handle(context.Background(), GetLeaderboardQuery{Limit: 10})
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection reset")
}

// ─────────────────────────────────────────────────────────────────────────────
// GetAchievements
// ─────────────────────────────────────────────────────────────────────────────

func TestGetAchievements_OverlaysEarnedSet(t *testing.T) {
	earnedAt := time.Date(2026, time.April, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeAchievementRepo{
		definitions: []achievement.Definition{
			{ID: 1, Name: "First Steps", XPBonus: 50},
			{ID: 2, Name: "Week Warrior", XPBonus: 100},
		},
		earned: map[string][]achievement.Record{
			"learner-1": {{LearnerID: "learner-1", AchievementID: 1, EarnedAt: earnedAt}},
		},
	}

	h := NewGetAchievementsHandler(repo)
	res, err := h.Handle(context.Background(), GetAchievementsQuery{LearnerID: "learner-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalCount)
	assert.Equal(t, 1, res.EarnedCount)
	require.Len(t, res.Achievements, 2)

	assert.True(t, res.Achievements[0].Earned)
	require.NotNil(t, res.Achievements[0].EarnedAt)
	assert.Equal(t, earnedAt, *res.Achievements[0].EarnedAt)

	assert.False(t, res.Achievements[1].Earned)
	assert.Nil(t, res.Achievements[1].EarnedAt)
}

func TestGetAchievements_Validation(t *testing.T) {
	h := NewGetAchievementsHandler(&fakeAchievementRepo{})

	_, err := h.Handle(context.Background(), GetAchievementsQuery{})
	assert.True(t, shared.IsValidation(err))
}

// ─────────────────────────────────────────────────────────────────────────────
// GetQuizHistory
// ─────────────────────────────────────────────────────────────────────────────

func TestGetQuizHistory(t *testing.T) {
	played := time.Date(2026, time.May, 2, 9, 0, 0, 0, time.UTC)
	progress := &fakeProgressRepo{
		records: map[string]*learner.ProgressRecord{},
		attempts: []learner.QuizAttempt{
			{LearnerID: "learner-1", GameMode: "quiz", Score: 87, TotalQuestions: 10, CorrectAnswers: 8, XPEarned: 8, CreatedAt: played},
			{LearnerID: "learner-1", GameMode: "eco-match", Score: 40, XPEarned: 4, CreatedAt: played.Add(-time.Hour)},
			{LearnerID: "other", GameMode: "quiz", Score: 99, XPEarned: 9, CreatedAt: played},
		},
	}

	h := NewGetQuizHistoryHandler(progress)
	res, err := h.Handle(context.Background(), GetQuizHistoryQuery{LearnerID: "learner-1"})
	require.NoError(t, err)

	require.Len(t, res.Attempts, 2)
	assert.Equal(t, "quiz", res.Attempts[0].GameMode)
	assert.Equal(t, 8, res.Attempts[0].XPEarned)
	assert.Equal(t, played, res.Attempts[0].PlayedAt)

	res, err = h.Handle(context.Background(), GetQuizHistoryQuery{LearnerID: "learner-1", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, res.Attempts, 1)
}

func TestGetQuizHistory_Validation(t *testing.T) {
	h := NewGetQuizHistoryHandler(&fakeProgressRepo{records: map[string]*learner.ProgressRecord{}})

	_, err := h.Handle(context.Background(), GetQuizHistoryQuery{})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(context.Background(), GetQuizHistoryQuery{LearnerID: "learner-1", Limit: -5})
	assert.True(t, shared.IsValidation(err))
}
