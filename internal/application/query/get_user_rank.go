package query

import (
	"context"
	"fmt"
	"math"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/leaderboard"
	"github.com/Speak-Craft/backend/internal/domain/progression"
	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER RANK QUERY
// Answers "where am I" for one user in one domain's full ranking, including
// users outside the public top-N.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserRankQuery contains rank request parameters.
type GetUserRankQuery struct {
	// UserID identifies the user asking for their position.
	UserID string

	// Domain is the practice domain to rank within.
	Domain string
}

// Validate checks the query parameters.
func (q *GetUserRankQuery) Validate() error {
	if _, err := shared.NewUserID(q.UserID); err != nil {
		return err
	}
	if _, err := challenge.ParseDomain(q.Domain); err != nil {
		return err
	}
	return nil
}

// GetUserRankResult contains the user's position.
type GetUserRankResult struct {
	// Domain is the ranked practice domain.
	Domain string `json:"domain"`

	// Ranked indicates the user appears in the ranking at all. Users
	// without passed sessions are unranked.
	Ranked bool `json:"ranked"`

	// Rank is the user's 1-based position, zero when unranked.
	Rank int `json:"rank"`

	// TotalRanked is how many users hold a rank in the domain.
	TotalRanked int `json:"totalRanked"`

	// Percentile says which share of ranked users this user beats or ties,
	// e.g. 90 means top 10%. Zero when unranked.
	Percentile float64 `json:"percentile"`

	// Entry is the user's ranked row, nil when unranked.
	Entry *leaderboard.Entry `json:"entry,omitempty"`
}

// GetUserRankHandler handles user rank queries.
type GetUserRankHandler struct {
	sessionRepo session.Repository
	stateRepo   progression.Repository
}

// NewGetUserRankHandler creates a new GetUserRankHandler.
func NewGetUserRankHandler(
	sessionRepo session.Repository,
	stateRepo progression.Repository,
) *GetUserRankHandler {
	return &GetUserRankHandler{
		sessionRepo: sessionRepo,
		stateRepo:   stateRepo,
	}
}

// Handle executes the user rank query. The full ranking is always recomputed
// because the cache only holds the public top-N.
func (h *GetUserRankHandler) Handle(ctx context.Context, query GetUserRankQuery) (*GetUserRankResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	userID, _ := shared.NewUserID(query.UserID)
	domain, _ := challenge.ParseDomain(query.Domain)

	records, err := h.sessionRepo.ListPassedByDomain(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("get_user_rank: failed to load session records: %w", err)
	}

	badgeCounts, err := h.badgeCounts(ctx, domain, records)
	if err != nil {
		return nil, err
	}

	entry, total, ranked := leaderboard.RankOf(records, badgeCounts, userID)
	result := &GetUserRankResult{
		Domain:      domain.String(),
		Ranked:      ranked,
		TotalRanked: total,
	}
	if ranked {
		result.Rank = entry.Rank
		result.Entry = &entry
		result.Percentile = math.Round(float64(total-entry.Rank) / float64(total) * 100)
	}

	return result, nil
}

func (h *GetUserRankHandler) badgeCounts(ctx context.Context, domain challenge.Domain, records []*session.Record) (map[shared.UserID]int, error) {
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
		return nil, fmt.Errorf("get_user_rank: failed to load progression states: %w", err)
	}

	counts := make(map[shared.UserID]int, len(states))
	for id, state := range states {
		counts[id] = len(state.Badges)
	}
	return counts, nil
}
