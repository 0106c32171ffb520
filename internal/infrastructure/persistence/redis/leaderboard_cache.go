package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/leaderboard"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache stores precomputed per-domain rankings in Redis.
//
// Architecture:
//   - Sorted set "leaderboard:rank:{domain}" keeps user IDs ordered by rank,
//     so reads preserve exactly the order the aggregator computed.
//   - Hash "leaderboard:info:{domain}" maps user ID to the entry JSON.
//
// Both keys expire together; a missing sorted set is a cache miss and the
// caller recomputes from session records.
type LeaderboardCache struct {
	cache *Cache
	ttl   time.Duration
}

// Key patterns for leaderboard cache.
const (
	keyLeaderboardRank = "leaderboard:rank:"
	keyLeaderboardInfo = "leaderboard:info:"

	// DefaultLeaderboardTTL bounds staleness between scheduler rebuilds.
	DefaultLeaderboardTTL = 10 * time.Minute
)

// NewLeaderboardCache creates a leaderboard cache on top of the general
// cache. A zero ttl falls back to DefaultLeaderboardTTL.
func NewLeaderboardCache(cache *Cache, ttl time.Duration) *LeaderboardCache {
	if ttl <= 0 {
		ttl = DefaultLeaderboardTTL
	}
	return &LeaderboardCache{cache: cache, ttl: ttl}
}

func rankKey(domain challenge.Domain) string {
	return keyLeaderboardRank + domain.String()
}

func infoKey(domain challenge.Domain) string {
	return keyLeaderboardInfo + domain.String()
}

// GetTop implements leaderboard.Cache.
func (lc *LeaderboardCache) GetTop(ctx context.Context, domain challenge.Domain, n int) ([]leaderboard.Entry, error) {
	if n <= 0 {
		n = leaderboard.DefaultLimit
	}

	client := lc.cache.Client()
	ids, err := client.ZRange(ctx, rankKey(domain), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: failed to read ranking: %w", err)
	}
	if len(ids) == 0 {
		return nil, shared.ErrNotFound
	}

	raw, err := client.HMGet(ctx, infoKey(domain), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: failed to read entries: %w", err)
	}

	entries := make([]leaderboard.Entry, 0, len(ids))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			// Hash and sorted set diverged; treat as a miss.
			return nil, shared.ErrNotFound
		}
		var entry leaderboard.Entry
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SetTop implements leaderboard.Cache. The ranking is replaced atomically
// through a pipeline.
func (lc *LeaderboardCache) SetTop(ctx context.Context, domain challenge.Domain, entries []leaderboard.Entry) error {
	client := lc.cache.Client()

	members := make([]redis.Z, 0, len(entries))
	info := make(map[string]interface{}, len(entries))
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
		}
		members = append(members, redis.Z{
			Score:  float64(entry.Rank),
			Member: entry.UserID.String(),
		})
		info[entry.UserID.String()] = data
	}

	pipe := client.TxPipeline()
	pipe.Del(ctx, rankKey(domain), infoKey(domain))
	if len(members) > 0 {
		pipe.ZAdd(ctx, rankKey(domain), members...)
		pipe.HSet(ctx, infoKey(domain), info)
		pipe.Expire(ctx, rankKey(domain), lc.ttl)
		pipe.Expire(ctx, infoKey(domain), lc.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard_cache: failed to store ranking: %w", err)
	}
	return nil
}

// Invalidate implements leaderboard.Cache.
func (lc *LeaderboardCache) Invalidate(ctx context.Context, domain challenge.Domain) error {
	return lc.cache.Delete(ctx, rankKey(domain), infoKey(domain))
}
