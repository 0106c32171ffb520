// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/leaderboard"
	"github.com/Speak-Craft/backend/internal/domain/progression"
	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Returns the top-N ranking for one practice domain, served from the cache
// when possible and recomputed from session records otherwise.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery contains leaderboard request parameters.
type GetLeaderboardQuery struct {
	// Domain is the practice domain to rank.
	Domain string

	// Limit is the number of entries to return (default 10, max 100).
	Limit int
}

// Validate checks the query parameters and applies defaults.
func (q *GetLeaderboardQuery) Validate() error {
	if _, err := challenge.ParseDomain(q.Domain); err != nil {
		return err
	}
	if q.Limit < 0 {
		return shared.NewDomainError("query", "GetLeaderboard", shared.ErrValidation, "limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = leaderboard.DefaultLimit
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// GetLeaderboardResult contains the ranked entries.
type GetLeaderboardResult struct {
	// Domain is the ranked practice domain.
	Domain string `json:"domain"`

	// Entries are the ranked rows, best first.
	Entries []leaderboard.Entry `json:"entries"`

	// FromCache indicates the ranking was served from the cache.
	FromCache bool `json:"-"`

	// GeneratedAt is when the result was produced.
	GeneratedAt time.Time `json:"generatedAt"`
}

// GetLeaderboardHandler handles leaderboard queries.
type GetLeaderboardHandler struct {
	sessionRepo session.Repository
	stateRepo   progression.Repository
	cache       leaderboard.Cache
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler. The cache may
// be nil, in which case every query recomputes the ranking.
func NewGetLeaderboardHandler(
	sessionRepo session.Repository,
	stateRepo progression.Repository,
	cache leaderboard.Cache,
) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{
		sessionRepo: sessionRepo,
		stateRepo:   stateRepo,
		cache:       cache,
	}
}

// Handle executes the leaderboard query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	domain, _ := challenge.ParseDomain(query.Domain)

	if h.cache != nil {
		// A cached list shorter than the requested limit may be a truncation
		// left by a smaller earlier request, so only a full-length hit is
		// trusted; anything less falls through to a recompute.
		if cached, err := h.cache.GetTop(ctx, domain, query.Limit); err == nil && len(cached) >= query.Limit {
			return &GetLeaderboardResult{
				Domain:      domain.String(),
				Entries:     cached,
				FromCache:   true,
				GeneratedAt: time.Now().UTC(),
			}, nil
		}
	}

	entries, err := h.Compute(ctx, domain, query.Limit)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		// Best effort; a failed cache write never fails the query.
		_ = h.cache.SetTop(ctx, domain, entries)
	}

	return &GetLeaderboardResult{
		Domain:      domain.String(),
		Entries:     entries,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// Compute rebuilds the ranking from session records, bypassing the cache.
// The scheduler uses it to refresh cached rankings.
func (h *GetLeaderboardHandler) Compute(ctx context.Context, domain challenge.Domain, limit int) ([]leaderboard.Entry, error) {
	records, err := h.sessionRepo.ListPassedByDomain(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: failed to load session records: %w", err)
	}

	badgeCounts, err := h.badgeCounts(ctx, domain, records)
	if err != nil {
		return nil, err
	}

	return leaderboard.TopN(records, badgeCounts, limit), nil
}

func (h *GetLeaderboardHandler) badgeCounts(ctx context.Context, domain challenge.Domain, records []*session.Record) (map[shared.UserID]int, error) {
	seen := make(map[shared.UserID]struct{})
	var users []shared.UserID
	for _, rec := range records {
		if _, ok := seen[rec.UserID]; ok {
			continue
		}
		seen[rec.UserID] = struct{}{}
		users = append(users, rec.UserID)
	}
	if len(users) == 0 {
		return nil, nil
	}

	states, err := h.stateRepo.FindAllByUsers(ctx, users, domain)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: failed to load progression states: %w", err)
	}

	counts := make(map[shared.UserID]int, len(states))
	for id, state := range states {
		counts[id] = len(state.Badges)
	}
	return counts, nil
}
