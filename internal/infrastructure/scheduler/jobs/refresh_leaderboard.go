// Package jobs contains the scheduled background jobs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Speak-Craft/backend/internal/application/query"
	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// RefreshLeaderboardJob recomputes the ranking for every challenge domain and
// writes it to the cache. Between runs the cache is also refreshed lazily on
// reads and invalidated by session submissions; this job keeps rankings warm
// so a cold cache never forces a full recompute on the request path.
type RefreshLeaderboardJob struct {
	leaderboards *query.GetLeaderboardHandler
	cache        leaderboard.Cache
	logger       *slog.Logger

	config RefreshLeaderboardConfig

	lastStats atomic.Value // *RefreshStats
}

// RefreshLeaderboardConfig contains configuration for the refresh job.
type RefreshLeaderboardConfig struct {
	// Limit is how many entries to compute and cache per domain.
	Limit int

	// Timeout is the maximum duration for one refresh run.
	Timeout time.Duration
}

// DefaultRefreshLeaderboardConfig returns sensible defaults.
func DefaultRefreshLeaderboardConfig() RefreshLeaderboardConfig {
	return RefreshLeaderboardConfig{
		Limit:   leaderboard.DefaultLimit,
		Timeout: time.Minute,
	}
}

// RefreshStats contains statistics from a refresh run.
type RefreshStats struct {
	StartedAt        time.Time
	CompletedAt      time.Time
	Duration         time.Duration
	DomainsRefreshed int
	EntriesCached    int
	Errors           []error
}

// NewRefreshLeaderboardJob creates a new leaderboard refresh job.
func NewRefreshLeaderboardJob(
	leaderboards *query.GetLeaderboardHandler,
	cache leaderboard.Cache,
	logger *slog.Logger,
	config RefreshLeaderboardConfig,
) *RefreshLeaderboardJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Limit <= 0 {
		config.Limit = leaderboard.DefaultLimit
	}

	return &RefreshLeaderboardJob{
		leaderboards: leaderboards,
		cache:        cache,
		logger:       logger,
		config:       config,
	}
}

// Name returns the job name.
func (j *RefreshLeaderboardJob) Name() string {
	return "refresh_leaderboard"
}

// Description returns a human-readable description.
func (j *RefreshLeaderboardJob) Description() string {
	return "Recomputes per-domain leaderboard rankings and warms the cache"
}

// Run executes the refresh job.
func (j *RefreshLeaderboardJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &RefreshStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	for _, domain := range challenge.AllDomains() {
		if err := j.refreshDomain(ctx, domain, stats); err != nil {
			stats.Errors = append(stats.Errors, err)
			j.logger.Error("leaderboard refresh failed",
				"domain", domain.String(),
				"error", err,
			)
			continue
		}
		stats.DomainsRefreshed++
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastStats.Store(stats)

	j.logger.Info("refresh_leaderboard job completed",
		"duration", stats.Duration.String(),
		"domains", stats.DomainsRefreshed,
		"entries", stats.EntriesCached,
	)

	if len(stats.Errors) > 0 {
		return fmt.Errorf("refresh completed with %d errors", len(stats.Errors))
	}
	return nil
}

func (j *RefreshLeaderboardJob) refreshDomain(ctx context.Context, domain challenge.Domain, stats *RefreshStats) error {
	entries, err := j.leaderboards.Compute(ctx, domain, j.config.Limit)
	if err != nil {
		return fmt.Errorf("compute %s ranking: %w", domain, err)
	}

	if len(entries) == 0 {
		// Nothing to rank yet. Leave the cache empty so reads fall through.
		return nil
	}

	if err := j.cache.SetTop(ctx, domain, entries); err != nil {
		return fmt.Errorf("cache %s ranking: %w", domain, err)
	}
	stats.EntriesCached += len(entries)

	return nil
}

// LastStats returns statistics from the last refresh, or nil before the
// first run.
func (j *RefreshLeaderboardJob) LastStats() *RefreshStats {
	stats := j.lastStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RefreshStats)
}
