package leaderboard

import (
	"context"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
)

// Cache stores precomputed per-domain rankings. Implementations are free to
// drop entries at any time; readers must fall back to recomputing from
// session records.
type Cache interface {
	// GetTop returns up to n cached entries for a domain, or
	// shared.ErrNotFound when the domain has no cached ranking.
	GetTop(ctx context.Context, domain challenge.Domain, n int) ([]Entry, error)

	// SetTop replaces the cached ranking for a domain.
	SetTop(ctx context.Context, domain challenge.Domain, entries []Entry) error

	// Invalidate drops the cached ranking for a domain.
	Invalidate(ctx context.Context, domain challenge.Domain) error
}
