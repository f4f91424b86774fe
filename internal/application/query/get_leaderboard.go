package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/learner"
	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Ranks learners by lifetime XP. Served from the Redis sorted-set cache
// when it is warm; falls back to the store and reports ranks from the XP
// ordering either way.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache is the read side of the cached ranking. The Redis
// implementation lives in the infrastructure layer; the worker keeps it
// warm.
type LeaderboardCache interface {
	// GetTop returns the highest-XP rows in rank order.
	GetTop(ctx context.Context, limit int) ([]learner.LeaderboardRow, error)

	// GetRank returns a learner's 1-based rank, or 0 when absent.
	GetRank(ctx context.Context, learnerID string) (int, error)
}

// GetLeaderboardQuery contains the leaderboard parameters.
type GetLeaderboardQuery struct {
	// Limit - number of entries (default 20, max 100).
	Limit int
}

// Validate validates and normalizes the query.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("get_leaderboard: limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// LeaderboardEntryDTO is one ranked row.
type LeaderboardEntryDTO struct {
	Rank        int    `json:"rank"`
	LearnerID   string `json:"learner_id"`
	DisplayName string `json:"display_name"`
	TotalXP     int    `json:"total_xp"`
	Level       int    `json:"level"`
}

// GetLeaderboardResult is the ranked view.
type GetLeaderboardResult struct {
	Entries     []LeaderboardEntryDTO `json:"entries"`
	FromCache   bool                  `json:"-"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// GetLeaderboardHandler handles the GetLeaderboardQuery.
type GetLeaderboardHandler struct {
	progressRepo learner.ProgressRepository
	cache        LeaderboardCache
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler.
// The cache may be nil; the handler then always reads the store.
func NewGetLeaderboardHandler(progressRepo learner.ProgressRepository, cache LeaderboardCache) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{progressRepo: progressRepo, cache: cache}
}

// Handle executes the leaderboard query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrValidation, "invalid query", err)
	}

	result := &GetLeaderboardResult{
		Entries:     make([]LeaderboardEntryDTO, 0, query.Limit),
		GeneratedAt: time.Now().UTC(),
	}

	rows, fromCache, err := h.load(ctx, query.Limit)
	if err != nil {
		return nil, err
	}
	result.FromCache = fromCache

	for i, row := range rows {
		result.Entries = append(result.Entries, LeaderboardEntryDTO{
			Rank:        i + 1,
			LearnerID:   row.LearnerID,
			DisplayName: row.DisplayName,
			TotalXP:     row.TotalXP,
			Level:       row.Level,
		})
	}

	return result, nil
}

// load reads the ranking cache-first. A cold or failing cache falls back
// to the store; a store failure is the caller's problem, not an empty board.
func (h *GetLeaderboardHandler) load(ctx context.Context, limit int) ([]learner.LeaderboardRow, bool, error) {
	if h.cache != nil {
		if rows, err := h.cache.GetTop(ctx, limit); err == nil && len(rows) > 0 {
			return rows, true, nil
		}
	}

	rows, err := h.progressRepo.TopByXP(ctx, limit)
	if err != nil {
		return nil, false, fmt.Errorf("get_leaderboard: load ranking: %w", err)
	}
	return rows, false, nil
}
