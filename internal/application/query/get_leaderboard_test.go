package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/leaderboard"
	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/internal/domain/shared"
	"github.com/Speak-Craft/backend/internal/infrastructure/persistence/memory"
)

const (
	rankedUserA = shared.UserID("3b8f4a2e-1c6d-4e9a-8f21-0d5b7c3a9e11")
	rankedUserB = shared.UserID("7d2e9f10-5a4b-4c8d-9e3f-1b6a8c0d2f45")
)

// storedLeaderboardCache keeps one ranking per domain and serves at most n
// entries of it, the same contract the redis cache honors.
type storedLeaderboardCache struct {
	entries map[challenge.Domain][]leaderboard.Entry
}

func newStoredLeaderboardCache() *storedLeaderboardCache {
	return &storedLeaderboardCache{entries: make(map[challenge.Domain][]leaderboard.Entry)}
}

func (c *storedLeaderboardCache) GetTop(_ context.Context, domain challenge.Domain, n int) ([]leaderboard.Entry, error) {
	stored, ok := c.entries[domain]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if len(stored) > n {
		stored = stored[:n]
	}
	return append([]leaderboard.Entry(nil), stored...), nil
}

func (c *storedLeaderboardCache) SetTop(_ context.Context, domain challenge.Domain, entries []leaderboard.Entry) error {
	c.entries[domain] = append([]leaderboard.Entry(nil), entries...)
	return nil
}

func (c *storedLeaderboardCache) Invalidate(_ context.Context, domain challenge.Domain) error {
	delete(c.entries, domain)
	return nil
}

func passedRecord(user shared.UserID, score float64) *session.Record {
	return session.NewRecord(user, challenge.DomainPace, 0, session.RawMetrics{},
		session.Verdict{Passed: true, Score: shared.Score(score)})
}

func newLeaderboardFixture(t *testing.T, cache leaderboard.Cache) *GetLeaderboardHandler {
	t.Helper()
	sessionRepo := memory.NewSessionRepository()
	stateRepo := memory.NewProgressionRepository()

	ctx := context.Background()
	require.NoError(t, sessionRepo.Save(ctx, passedRecord(rankedUserA, 91)))
	require.NoError(t, sessionRepo.Save(ctx, passedRecord(rankedUserB, 84)))

	return NewGetLeaderboardHandler(sessionRepo, stateRepo, cache)
}

func TestGetLeaderboard_LargerLimitBypassesSmallerCachedList(t *testing.T) {
	cache := newStoredLeaderboardCache()
	handler := newLeaderboardFixture(t, cache)
	ctx := context.Background()

	// A limit-1 read warms the cache with a single entry.
	small, err := handler.Handle(ctx, GetLeaderboardQuery{Domain: "pace", Limit: 1})
	require.NoError(t, err)
	require.Len(t, small.Entries, 1)
	assert.False(t, small.FromCache)

	// A wider read must not be served the truncated list.
	full, err := handler.Handle(ctx, GetLeaderboardQuery{Domain: "pace", Limit: 10})
	require.NoError(t, err)
	assert.False(t, full.FromCache)
	require.Len(t, full.Entries, 2)
	assert.Equal(t, 91.0, full.Entries[0].BestScore)
	assert.Equal(t, 84.0, full.Entries[1].BestScore)
}

func TestGetLeaderboard_FullLengthCacheHit(t *testing.T) {
	cache := newStoredLeaderboardCache()
	handler := newLeaderboardFixture(t, cache)
	ctx := context.Background()

	// Warm with both entries, then a limit covered by the stored ranking
	// serves from the cache.
	warm, err := handler.Handle(ctx, GetLeaderboardQuery{Domain: "pace", Limit: 2})
	require.NoError(t, err)
	require.Len(t, warm.Entries, 2)

	hit, err := handler.Handle(ctx, GetLeaderboardQuery{Domain: "pace", Limit: 2})
	require.NoError(t, err)
	assert.True(t, hit.FromCache)
	require.Len(t, hit.Entries, 2)

	narrower, err := handler.Handle(ctx, GetLeaderboardQuery{Domain: "pace", Limit: 1})
	require.NoError(t, err)
	assert.True(t, narrower.FromCache)
	require.Len(t, narrower.Entries, 1)
	assert.Equal(t, rankedUserA, narrower.Entries[0].UserID)
}

func TestGetLeaderboard_NoCacheRecomputes(t *testing.T) {
	handler := newLeaderboardFixture(t, nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Domain: "pace"})
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Len(t, result.Entries, 2)
}
