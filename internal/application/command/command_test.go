package command

import (
	"context"
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
	byID    map[string]*learner.Learner
	byEmail map[learner.Email]*learner.Learner
}

func newFakeLearnerRepo() *fakeLearnerRepo {
	return &fakeLearnerRepo{
		byID:    make(map[string]*learner.Learner),
		byEmail: make(map[learner.Email]*learner.Learner),
	}
}

func (r *fakeLearnerRepo) Create(_ context.Context, l *learner.Learner) error {
	if _, ok := r.byEmail[l.Email]; ok {
		return shared.ErrLearnerAlreadyExists
	}
	r.byID[l.ID] = l
	r.byEmail[l.Email] = l
	return nil
}

func (r *fakeLearnerRepo) GetByID(_ context.Context, id string) (*learner.Learner, error) {
	l, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrLearnerNotFound
	}
	return l, nil
}

func (r *fakeLearnerRepo) GetByEmail(_ context.Context, email learner.Email) (*learner.Learner, error) {
	l, ok := r.byEmail[email]
	if !ok {
		return nil, shared.ErrLearnerNotFound
	}
	return l, nil
}

func (r *fakeLearnerRepo) Update(_ context.Context, l *learner.Learner) error {
	r.byID[l.ID] = l
	return nil
}

func (r *fakeLearnerRepo) Count(_ context.Context) (int, error) {
	return len(r.byID), nil
}

type fakeProgressRepo struct {
	records map[string]*learner.ProgressRecord
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{records: make(map[string]*learner.ProgressRecord)}
}

func (r *fakeProgressRepo) Get(_ context.Context, learnerID string) (*learner.ProgressRecord, error) {
	rec, ok := r.records[learnerID]
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	return rec, nil
}

func (r *fakeProgressRepo) Update(ctx context.Context, learnerID string, fn func(rec *learner.ProgressRecord) error) (*learner.ProgressRecord, error) {
	rec, ok := r.records[learnerID]
	if !ok {
		rec = learner.NewProgressRecord(learnerID)
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	rec.ClearPending()
	r.records[learnerID] = rec
	return rec, nil
}

func (r *fakeProgressRepo) QuizAttempts(_ context.Context, _ string, _ int) ([]learner.QuizAttempt, error) {
	return nil, nil
}

func (r *fakeProgressRepo) TopByXP(_ context.Context, _ int) ([]learner.LeaderboardRow, error) {
	return nil, nil
}

func (r *fakeProgressRepo) StreaksAtRisk(_ context.Context, _ time.Time) ([]learner.StreakAtRisk, error) {
	return nil, nil
}

type fakeCatalogRepo struct {
	path *catalog.Path
}

func (r *fakeCatalogRepo) GetCategories(_ context.Context) ([]catalog.Category, error) {
	return r.path.Categories(), nil
}

func (r *fakeCatalogRepo) GetCategory(_ context.Context, id int) (*catalog.Category, error) {
	for _, c := range r.path.Categories() {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, shared.ErrCategoryNotFound
}

func (r *fakeCatalogRepo) GetLessons(_ context.Context) ([]catalog.Lesson, error) {
	var out []catalog.Lesson
	for _, c := range r.path.Categories() {
		out = append(out, r.path.LessonsIn(c.ID)...)
	}
	return out, nil
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
}

func (r *fakeAchievementRepo) GetDefinitions(_ context.Context) ([]achievement.Definition, error) {
	return r.definitions, nil
}

func (r *fakeAchievementRepo) GetDefinition(_ context.Context, id int) (*achievement.Definition, error) {
	for _, d := range r.definitions {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, shared.ErrAchievementNotFound
}

func (r *fakeAchievementRepo) GetEarnedBy(_ context.Context, _ string) ([]achievement.Record, error) {
	return nil, nil
}

func (r *fakeAchievementRepo) CountEarned(_ context.Context, _ int) (int, error) {
	return 0, nil
}

type fakePublisher struct {
	events []shared.Event
}

func (p *fakePublisher) Publish(e shared.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) typesPublished() []shared.EventType {
	out := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (fakeHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return ErrInvalidCredentials
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

type fixture struct {
	learners     *fakeLearnerRepo
	progress     *fakeProgressRepo
	catalog      *fakeCatalogRepo
	achievements *fakeAchievementRepo
	publisher    *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	path := catalog.NewPath(
		[]catalog.Category{
			{ID: 1, Name: "Climate Basics", SortOrder: 1},
			{ID: 2, Name: "Renewable Energy", SortOrder: 2},
		},
		[]catalog.Lesson{
			{ID: 1, CategoryID: 1, Title: "What Is Climate?", XPReward: 50, SortOrder: 1},
			{ID: 2, CategoryID: 1, Title: "The Greenhouse Effect", XPReward: 450, SortOrder: 2},
			{ID: 3, CategoryID: 2, Title: "Solar Power", XPReward: 50, SortOrder: 1},
		},
	)

	f := &fixture{
		learners: newFakeLearnerRepo(),
		progress: newFakeProgressRepo(),
		catalog:  &fakeCatalogRepo{path: path},
		achievements: &fakeAchievementRepo{definitions: []achievement.Definition{
			{ID: 1, Name: "First Steps", Criteria: achievement.Criteria{Type: achievement.CriteriaLessonsCompleted, Count: 1}, XPBonus: 50},
			{ID: 2, Name: "Week Warrior", Criteria: achievement.Criteria{Type: achievement.CriteriaStreak, Count: 7}, XPBonus: 100},
		}},
		publisher: &fakePublisher{},
	}

	l, err := learner.NewLearner(learner.NewLearnerParams{
		ID:           "learner-1",
		Email:        "eco@example.com",
		PasswordHash: "hashed:password123",
		DisplayName:  "Terra",
	})
	require.NoError(t, err)
	require.NoError(t, f.learners.Create(context.Background(), l))

	return f
}

func (f *fixture) completeLessonHandler() *CompleteLessonHandler {
	return NewCompleteLessonHandler(f.learners, f.progress, f.catalog, f.achievements, f.publisher)
}

func (f *fixture) quizHandler() *RecordQuizAttemptHandler {
	return NewRecordQuizAttemptHandler(f.learners, f.progress, f.catalog, f.achievements, f.publisher)
}

// ─────────────────────────────────────────────────────────────────────────────
// CompleteLesson
// ─────────────────────────────────────────────────────────────────────────────

func TestCompleteLesson_FirstCompletion(t *testing.T) {
	f := newFixture(t)
	h := f.completeLessonHandler()

	res, err := h.Handle(context.Background(), CompleteLessonCommand{
		LearnerID: "learner-1",
		LessonID:  1,
		Score:     90,
		Timestamp: time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.True(t, res.FirstCompletion)
	assert.Equal(t, 100, res.XPEarned, "50 lesson reward + 50 First Steps bonus")
	assert.Equal(t, 100, res.TotalXP)
	assert.Equal(t, 1, res.Level)
	assert.Equal(t, 1, res.CurrentStreak)
	assert.True(t, res.StreakExtended)
	require.Len(t, res.UnlockedAchievements, 1)
	assert.Equal(t, "First Steps", res.UnlockedAchievements[0].Name)

	types := f.publisher.typesPublished()
	assert.Contains(t, types, shared.EventLessonCompleted)
	assert.Contains(t, types, shared.EventAchievementUnlocked)
	assert.Contains(t, types, shared.EventStreakExtended)
	assert.NotContains(t, types, shared.EventLevelUp)
}

func TestCompleteLesson_RepeatGrantsNoXP(t *testing.T) {
	f := newFixture(t)
	h := f.completeLessonHandler()
	ts := time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)

	_, err := h.Handle(context.Background(), CompleteLessonCommand{LearnerID: "learner-1", LessonID: 1, Score: 60, Timestamp: ts})
	require.NoError(t, err)

	res, err := h.Handle(context.Background(), CompleteLessonCommand{LearnerID: "learner-1", LessonID: 1, Score: 95, Timestamp: ts.Add(time.Hour)})
	require.NoError(t, err)

	assert.False(t, res.FirstCompletion)
	assert.Equal(t, 0, res.XPEarned)
	assert.Equal(t, 100, res.TotalXP, "total unchanged by re-completion")
	assert.Empty(t, res.UnlockedAchievements)
}

func TestCompleteLesson_LockedLessonRejected(t *testing.T) {
	f := newFixture(t)
	h := f.completeLessonHandler()

	_, err := h.Handle(context.Background(), CompleteLessonCommand{LearnerID: "learner-1", LessonID: 2})
	assert.ErrorIs(t, err, ErrLessonLocked)

	// Category 2 is gated by category 1.
	_, err = h.Handle(context.Background(), CompleteLessonCommand{LearnerID: "learner-1", LessonID: 3})
	assert.ErrorIs(t, err, ErrLessonLocked)
}

func TestCompleteLesson_AchievementBonusTriggersLevelUp(t *testing.T) {
	f := newFixture(t)
	h := f.completeLessonHandler()
	ts := time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)

	_, err := h.Handle(context.Background(), CompleteLessonCommand{LearnerID: "learner-1", LessonID: 1, Score: 80, Timestamp: ts})
	require.NoError(t, err)

	// 100 XP so far. Lesson 2 pays 450 -> 550 crosses the 500 boundary,
	// and the level check must see the post-bonus total.
	res, err := h.Handle(context.Background(), CompleteLessonCommand{LearnerID: "learner-1", LessonID: 2, Score: 80, Timestamp: ts.Add(time.Hour)})
	require.NoError(t, err)

	assert.Equal(t, 550, res.TotalXP)
	assert.Equal(t, 2, res.Level)
	assert.True(t, res.LeveledUp)
	assert.Contains(t, f.publisher.typesPublished(), shared.EventLevelUp)
}

func TestCompleteLesson_UnknownLearner(t *testing.T) {
	f := newFixture(t)
	h := f.completeLessonHandler()

	_, err := h.Handle(context.Background(), CompleteLessonCommand{LearnerID: "ghost", LessonID: 1})
	assert.True(t, shared.IsNotFound(err))
}

func TestCompleteLesson_UnknownLesson(t *testing.T) {
	f := newFixture(t)
	h := f.completeLessonHandler()

	_, err := h.Handle(context.Background(), CompleteLessonCommand{LearnerID: "learner-1", LessonID: 99})
	assert.ErrorIs(t, err, shared.ErrLessonNotFound)
}

// ─────────────────────────────────────────────────────────────────────────────
// RecordQuizAttempt
// ─────────────────────────────────────────────────────────────────────────────

func TestRecordQuizAttempt_GrantsXPEveryTime(t *testing.T) {
	f := newFixture(t)
	h := f.quizHandler()
	ts := time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)

	res1, err := h.Handle(context.Background(), RecordQuizAttemptCommand{
		LearnerID: "learner-1", GameMode: GameModeQuiz, Score: 87, TotalQuestions: 10, CorrectAnswers: 8, Timestamp: ts,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, res1.XPEarned)

	res2, err := h.Handle(context.Background(), RecordQuizAttemptCommand{
		LearnerID: "learner-1", GameMode: GameModeQuiz, Score: 87, TotalQuestions: 10, CorrectAnswers: 8, Timestamp: ts,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, res2.XPEarned)
	assert.Equal(t, 16, res2.TotalXP)
}

func TestRecordQuizAttempt_StreakUnlocksAchievement(t *testing.T) {
	f := newFixture(t)
	h := f.quizHandler()

	var last *RecordQuizAttemptResult
	for day := 1; day <= 7; day++ {
		var err error
		last, err = h.Handle(context.Background(), RecordQuizAttemptCommand{
			LearnerID: "learner-1",
			GameMode:  GameModeEcoMatch,
			Score:     50,
			Timestamp: time.Date(2026, time.May, day, 9, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 7, last.CurrentStreak)
	require.Len(t, last.UnlockedAchievements, 1)
	assert.Equal(t, "Week Warrior", last.UnlockedAchievements[0].Name)
	// 7 days x 5 XP + 100 bonus
	assert.Equal(t, 135, last.TotalXP)
}

func TestRecordQuizAttempt_BrokenStreakReportsPreviousLength(t *testing.T) {
	f := newFixture(t)
	h := f.quizHandler()

	for day := 1; day <= 3; day++ {
		_, err := h.Handle(context.Background(), RecordQuizAttemptCommand{
			LearnerID: "learner-1",
			GameMode:  GameModeQuiz,
			Score:     50,
			Timestamp: time.Date(2026, time.May, day, 9, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	// Four silent days: the 3-day streak resets on May 8.
	res, err := h.Handle(context.Background(), RecordQuizAttemptCommand{
		LearnerID: "learner-1",
		GameMode:  GameModeQuiz,
		Score:     50,
		Timestamp: time.Date(2026, time.May, 8, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CurrentStreak)
	assert.Equal(t, 3, res.BestStreak)

	var broken *shared.StreakBrokenEvent
	for _, e := range f.publisher.events {
		if b, ok := e.(shared.StreakBrokenEvent); ok {
			broken = &b
		}
	}
	require.NotNil(t, broken, "a streak-broken event must go out")
	assert.Equal(t, 3, broken.PreviousStreak, "the event carries the streak that was lost")
	assert.Equal(t, 4, broken.DaysMissed)
}

func TestRecordQuizAttempt_Validation(t *testing.T) {
	f := newFixture(t)
	h := f.quizHandler()

	_, err := h.Handle(context.Background(), RecordQuizAttemptCommand{LearnerID: "learner-1", GameMode: "tetris", Score: 10})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(context.Background(), RecordQuizAttemptCommand{LearnerID: "learner-1", GameMode: GameModeQuiz, Score: -1})
	assert.True(t, shared.IsValidation(err))
}

// ─────────────────────────────────────────────────────────────────────────────
// RegisterLearner / Authenticate
// ─────────────────────────────────────────────────────────────────────────────

func TestRegisterLearner(t *testing.T) {
	f := newFixture(t)
	h := NewRegisterLearnerHandler(f.learners, fakeHasher{}, f.publisher)

	res, err := h.Handle(context.Background(), RegisterLearnerCommand{
		Email:       "new@example.com",
		Password:    "password123",
		DisplayName: "Sol",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.LearnerID)
	assert.Equal(t, 1, res.Level)
	assert.Contains(t, f.publisher.typesPublished(), shared.EventLearnerRegistered)

	_, err = h.Handle(context.Background(), RegisterLearnerCommand{
		Email:       "new@example.com",
		Password:    "password123",
		DisplayName: "Sol Again",
	})
	assert.True(t, shared.IsAlreadyExists(err))
}

func TestAuthenticateLearner(t *testing.T) {
	f := newFixture(t)
	h := NewAuthenticateLearnerHandler(f.learners, fakeHasher{})

	res, err := h.Handle(context.Background(), AuthenticateLearnerCommand{Email: "eco@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "learner-1", res.LearnerID)

	_, err = h.Handle(context.Background(), AuthenticateLearnerCommand{Email: "eco@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = h.Handle(context.Background(), AuthenticateLearnerCommand{Email: "ghost@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
