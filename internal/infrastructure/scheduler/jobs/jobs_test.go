package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/learner"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"
)

type fakeProgressRepo struct {
	top     []learner.LeaderboardRow
	topErr  error
	atRisk  []learner.StreakAtRisk
	riskErr error
}

func (r *fakeProgressRepo) Get(_ context.Context, _ string) (*learner.ProgressRecord, error) {
	return nil, shared.ErrProgressNotFound
}

func (r *fakeProgressRepo) Update(_ context.Context, _ string, _ func(rec *learner.ProgressRecord) error) (*learner.ProgressRecord, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeProgressRepo) QuizAttempts(_ context.Context, _ string, _ int) ([]learner.QuizAttempt, error) {
	return nil, nil
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
	return r.atRisk, r.riskErr
}

type fakeRebuilder struct {
	rows     []learner.LeaderboardRow
	calls    int
	failures int
}

func (f *fakeRebuilder) Rebuild(_ context.Context, rows []learner.LeaderboardRow) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("redis timeout")
	}
	f.rows = rows
	return nil
}

type fakeReminder struct {
	reminded []string
}

func (f *fakeReminder) PushStreakReminder(learnerID string, _ int) {
	f.reminded = append(f.reminded, learnerID)
}

// ─────────────────────────────────────────────────────────────────────────────
// RebuildLeaderboard
// ─────────────────────────────────────────────────────────────────────────────

func TestRebuildLeaderboardJob(t *testing.T) {
	repo := &fakeProgressRepo{top: []learner.LeaderboardRow{
		{LearnerID: "a", DisplayName: "Ada", TotalXP: 1500, Level: 4},
		{LearnerID: "b", DisplayName: "Ben", TotalXP: 900, Level: 2},
	}}
	rebuilder := &fakeRebuilder{}

	job := NewRebuildLeaderboardJob(repo, rebuilder, nil, DefaultRebuildLeaderboardConfig())
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, rebuilder.rows, 2)
	assert.Equal(t, "a", rebuilder.rows[0].LearnerID)

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.RowsLoaded)
}

func TestRebuildLeaderboardJob_RetriesCacheWrites(t *testing.T) {
	repo := &fakeProgressRepo{top: []learner.LeaderboardRow{{LearnerID: "a"}}}
	rebuilder := &fakeRebuilder{failures: 2}

	job := NewRebuildLeaderboardJob(repo, rebuilder, nil, DefaultRebuildLeaderboardConfig())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 3, rebuilder.calls, "two failures then success")
	require.Len(t, rebuilder.rows, 1)
}

func TestRebuildLeaderboardJob_StoreErrorAborts(t *testing.T) {
	repo := &fakeProgressRepo{topErr: errors.New("db down")}
	rebuilder := &fakeRebuilder{}

	job := NewRebuildLeaderboardJob(repo, rebuilder, nil, DefaultRebuildLeaderboardConfig())
	err := job.Run(context.Background())

	assert.Error(t, err)
	assert.Zero(t, rebuilder.calls)
	assert.Nil(t, job.LastStats())
}

// ─────────────────────────────────────────────────────────────────────────────
// StreakWatch
// ─────────────────────────────────────────────────────────────────────────────

func TestStreakWatchJob(t *testing.T) {
	repo := &fakeProgressRepo{atRisk: []learner.StreakAtRisk{
		{LearnerID: "a", DisplayName: "Ada", CurrentStreak: 6},
		{LearnerID: "b", DisplayName: "Ben", CurrentStreak: 2},
	}}
	reminder := &fakeReminder{}

	job := NewStreakWatchJob(repo, reminder, nil)
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{"a", "b"}, reminder.reminded)
}

func TestStreakWatchJob_NobodyAtRisk(t *testing.T) {
	reminder := &fakeReminder{}
	job := NewStreakWatchJob(&fakeProgressRepo{}, reminder, nil)

	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, reminder.reminded)
}

func TestStreakWatchJob_RepoError(t *testing.T) {
	reminder := &fakeReminder{}
	job := NewStreakWatchJob(&fakeProgressRepo{riskErr: errors.New("db down")}, reminder, nil)

	assert.Error(t, job.Run(context.Background()))
	assert.Empty(t, reminder.reminded)
}
