package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ecoquest-hub/ecoquest-learning-hub/internal/domain/learner"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// Architecture:
//   - Sorted set "leaderboard:xp" stores learnerID -> total XP
//   - Hash "leaderboard:info" stores learnerID -> entry JSON
// Rank lookups are O(log N); top-N reads are O(log N + M). The worker
// rebuilds both keys from the store on a schedule and after XP changes.
// ══════════════════════════════════════════════════════════════════════════════

const (
	keyLeaderboardXP   = "leaderboard:xp"
	keyLeaderboardInfo = "leaderboard:info"
)

var (
	// ErrLeaderboardEmpty is returned when the cached leaderboard has no entries.
	ErrLeaderboardEmpty = errors.New("leaderboard_cache: leaderboard is empty")

	// ErrLearnerNotRanked is returned when a learner is not in the cache.
	ErrLearnerNotRanked = errors.New("leaderboard_cache: learner not ranked")
)

// leaderboardEntry is the JSON form stored in the info hash.
type leaderboardEntry struct {
	LearnerID   string `json:"learner_id"`
	DisplayName string `json:"display_name"`
	TotalXP     int    `json:"total_xp"`
	Level       int    `json:"level"`
}

// LeaderboardCache provides leaderboard reads and rebuilds over Redis
// sorted sets. It implements query.LeaderboardCache.
type LeaderboardCache struct {
	cache *Cache
}

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

// Rebuild replaces the cached leaderboard with the given rows.
// Old keys are dropped and rewritten in one pipeline so readers never
// see a half-built board.
func (l *LeaderboardCache) Rebuild(ctx context.Context, rows []learner.LeaderboardRow) error {
	pipe := l.cache.Client().TxPipeline()

	pipe.Del(ctx, keyLeaderboardXP, keyLeaderboardInfo)

	if len(rows) > 0 {
		zMembers := make([]redis.Z, 0, len(rows))
		hashData := make(map[string]interface{}, len(rows))

		for _, row := range rows {
			zMembers = append(zMembers, redis.Z{
				Score:  float64(row.TotalXP),
				Member: row.LearnerID,
			})

			data, err := json.Marshal(leaderboardEntry{
				LearnerID:   row.LearnerID,
				DisplayName: row.DisplayName,
				TotalXP:     row.TotalXP,
				Level:       row.Level,
			})
			if err != nil {
				return fmt.Errorf("leaderboard_cache: marshal failed: %w", err)
			}
			hashData[row.LearnerID] = data
		}

		pipe.ZAdd(ctx, keyLeaderboardXP, zMembers...)
		pipe.HSet(ctx, keyLeaderboardInfo, hashData)
	}

	pipe.Expire(ctx, keyLeaderboardXP, TTLLeaderboardCache)
	pipe.Expire(ctx, keyLeaderboardInfo, TTLLeaderboardCache)

	_, err := pipe.Exec(ctx)
	return err
}

// GetTop returns the highest-XP rows in rank order.
func (l *LeaderboardCache) GetTop(ctx context.Context, limit int) ([]learner.LeaderboardRow, error) {
	if limit <= 0 {
		return nil, nil
	}

	ids, err := l.cache.Client().ZRevRange(ctx, keyLeaderboardXP, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: zrevrange failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrLeaderboardEmpty
	}

	raw, err := l.cache.Client().HMGet(ctx, keyLeaderboardInfo, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: hmget failed: %w", err)
	}

	rows := make([]learner.LeaderboardRow, 0, len(ids))
	for i, id := range ids {
		var entry leaderboardEntry
		if s, ok := raw[i].(string); ok {
			if err := json.Unmarshal([]byte(s), &entry); err != nil {
				entry = leaderboardEntry{LearnerID: id}
			}
		} else {
			// Info hash out of sync with the sorted set; serve the ID
			// so the rank is still correct.
			entry = leaderboardEntry{LearnerID: id}
		}

		rows = append(rows, learner.LeaderboardRow{
			LearnerID:   entry.LearnerID,
			DisplayName: entry.DisplayName,
			TotalXP:     entry.TotalXP,
			Level:       entry.Level,
		})
	}

	return rows, nil
}

// GetRank returns a learner's 1-based rank, or 0 when absent.
func (l *LeaderboardCache) GetRank(ctx context.Context, learnerID string) (int, error) {
	rank, err := l.cache.Client().ZRevRank(ctx, keyLeaderboardXP, learnerID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrLearnerNotRanked
		}
		return 0, fmt.Errorf("leaderboard_cache: zrevrank failed: %w", err)
	}
	return int(rank) + 1, nil
}

// UpdateScore bumps one learner's XP in place without a full rebuild.
func (l *LeaderboardCache) UpdateScore(ctx context.Context, row learner.LeaderboardRow) error {
	data, err := json.Marshal(leaderboardEntry{
		LearnerID:   row.LearnerID,
		DisplayName: row.DisplayName,
		TotalXP:     row.TotalXP,
		Level:       row.Level,
	})
	if err != nil {
		return fmt.Errorf("leaderboard_cache: marshal failed: %w", err)
	}

	pipe := l.cache.Client().Pipeline()
	pipe.ZAdd(ctx, keyLeaderboardXP, redis.Z{Score: float64(row.TotalXP), Member: row.LearnerID})
	pipe.HSet(ctx, keyLeaderboardInfo, row.LearnerID, data)
	pipe.Expire(ctx, keyLeaderboardXP, TTLLeaderboardCache)
	pipe.Expire(ctx, keyLeaderboardInfo, TTLLeaderboardCache)

	_, err = pipe.Exec(ctx)
	return err
}
