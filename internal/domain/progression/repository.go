package progression

import (
	"context"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// Repository persists progression states with per-key optimistic
// concurrency: Save must reject a state whose Version no longer matches
// the stored row, surfacing shared.ErrOptimisticLock.
type Repository interface {
	// Find returns the state for (user, domain), or shared.ErrNotFound.
	Find(ctx context.Context, userID shared.UserID, domain challenge.Domain) (*State, error)

	// Create inserts a fresh state at version 1. Fails with
	// shared.ErrAlreadyExists when a state already exists for the key.
	Create(ctx context.Context, state *State) error

	// Save writes back a modified state, checking the version token and
	// bumping it on success.
	Save(ctx context.Context, state *State) error

	// FindAllByUsers returns the states of the given users for one
	// domain, for leaderboard badge counting. Missing users are skipped.
	FindAllByUsers(ctx context.Context, userIDs []shared.UserID, domain challenge.Domain) (map[shared.UserID]*State, error)
}
