package redis

import (
	"context"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/leaderboard"
	"github.com/Speak-Craft/backend/internal/domain/shared"
	"github.com/Speak-Craft/backend/pkg/circuitbreaker"
	"github.com/Speak-Craft/backend/pkg/logger"
)

// BreakeredLeaderboardCache wraps a leaderboard cache with a circuit breaker.
// While the breaker is open every read reports a miss and every write is
// dropped, so a sick Redis degrades the leaderboard to recompute-on-read
// instead of failing requests.
type BreakeredLeaderboardCache struct {
	inner   leaderboard.Cache
	breaker *circuitbreaker.CircuitBreaker
}

// NewBreakeredLeaderboardCache wraps inner with the standard cache breaker.
func NewBreakeredLeaderboardCache(inner leaderboard.Cache, log *logger.Logger) *BreakeredLeaderboardCache {
	onStateChange := func(name string, from, to circuitbreaker.State) {
		if log != nil {
			log.Warn("cache breaker state changed",
				logger.Component(name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		}
	}
	// A cache miss is a normal outcome, not a backend failure.
	isFailure := circuitbreaker.WithIsFailure(func(err error) bool {
		return !shared.IsNotFound(err)
	})
	return &BreakeredLeaderboardCache{
		inner:   inner,
		breaker: circuitbreaker.CacheBreaker(onStateChange, isFailure),
	}
}

// GetTop implements leaderboard.Cache.
func (c *BreakeredLeaderboardCache) GetTop(ctx context.Context, domain challenge.Domain, n int) ([]leaderboard.Entry, error) {
	var entries []leaderboard.Entry
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var innerErr error
		entries, innerErr = c.inner.GetTop(ctx, domain, n)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// SetTop implements leaderboard.Cache.
func (c *BreakeredLeaderboardCache) SetTop(ctx context.Context, domain challenge.Domain, entries []leaderboard.Entry) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.inner.SetTop(ctx, domain, entries)
	})
}

// Invalidate implements leaderboard.Cache.
func (c *BreakeredLeaderboardCache) Invalidate(ctx context.Context, domain challenge.Domain) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.inner.Invalidate(ctx, domain)
	})
}
