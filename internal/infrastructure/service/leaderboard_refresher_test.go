package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/learner"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/infrastructure/messaging"
)

type stubLearnerRepo struct {
	learners map[string]*learner.Learner
}

func (r *stubLearnerRepo) Create(_ context.Context, l *learner.Learner) error {
	r.learners[l.ID] = l
	return nil
}

func (r *stubLearnerRepo) GetByID(_ context.Context, id string) (*learner.Learner, error) {
	l, ok := r.learners[id]
	if !ok {
		return nil, shared.ErrLearnerNotFound
	}
	return l, nil
}

func (r *stubLearnerRepo) GetByEmail(_ context.Context, _ learner.Email) (*learner.Learner, error) {
	return nil, shared.ErrLearnerNotFound
}

func (r *stubLearnerRepo) Update(_ context.Context, l *learner.Learner) error {
	r.learners[l.ID] = l
	return nil
}

func (r *stubLearnerRepo) Count(_ context.Context) (int, error) {
	return len(r.learners), nil
}

type recordingUpdater struct {
	rows []learner.LeaderboardRow
}

func (u *recordingUpdater) UpdateScore(_ context.Context, row learner.LeaderboardRow) error {
	u.rows = append(u.rows, row)
	return nil
}

func TestLeaderboardRefresher_BumpsScoreOnXPGain(t *testing.T) {
	repo := &stubLearnerRepo{learners: map[string]*learner.Learner{}}
	l, err := learner.NewLearner(learner.NewLearnerParams{
		ID:           "learner-1",
		Email:        "eco@example.com",
		PasswordHash: "hash",
		DisplayName:  "Terra",
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), l))

	updater := &recordingUpdater{}
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{AsyncMode: false})
	defer bus.Close()

	refresher := NewLeaderboardRefresher(repo, updater, nil)
	require.NoError(t, refresher.RegisterHandlers(bus))

	require.NoError(t, bus.Publish(shared.NewXPGainedEvent("learner-1", 50, 550, "lesson_completion")))

	require.Len(t, updater.rows, 1)
	row := updater.rows[0]
	assert.Equal(t, "learner-1", row.LearnerID)
	assert.Equal(t, "Terra", row.DisplayName)
	assert.Equal(t, 550, row.TotalXP)
	assert.Equal(t, 2, row.Level, "550 XP crosses the level-2 boundary")
}

func TestLeaderboardRefresher_IgnoresOtherEvents(t *testing.T) {
	updater := &recordingUpdater{}
	refresher := NewLeaderboardRefresher(&stubLearnerRepo{learners: map[string]*learner.Learner{}}, updater, nil)

	err := refresher.handleXPGained(shared.NewLevelUpEvent("learner-1", 1, 2))
	require.NoError(t, err)
	assert.Empty(t, updater.rows)
}

func TestLeaderboardRefresher_UnknownLearner(t *testing.T) {
	updater := &recordingUpdater{}
	refresher := NewLeaderboardRefresher(&stubLearnerRepo{learners: map[string]*learner.Learner{}}, updater, nil)

	err := refresher.handleXPGained(shared.NewXPGainedEvent("ghost", 10, 10, "quiz_attempt"))
	assert.Error(t, err)
	assert.Empty(t, updater.rows)
}
