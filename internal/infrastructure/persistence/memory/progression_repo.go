// Package memory provides in-memory repository implementations used by tests
// and the local development mode. All implementations are safe for concurrent
// use and enforce the same contracts as the postgres versions, including
// optimistic locking.
package memory

import (
	"context"
	"sync"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/progression"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

type stateKey struct {
	userID shared.UserID
	domain challenge.Domain
}

// ProgressionRepository is an in-memory progression.Repository.
type ProgressionRepository struct {
	mu     sync.RWMutex
	states map[stateKey]*progression.State
}

// NewProgressionRepository creates an empty in-memory progression store.
func NewProgressionRepository() *ProgressionRepository {
	return &ProgressionRepository{states: make(map[stateKey]*progression.State)}
}

// Find implements progression.Repository.
func (r *ProgressionRepository) Find(ctx context.Context, userID shared.UserID, domain challenge.Domain) (*progression.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[stateKey{userID, domain}]
	if !ok {
		return nil, shared.ErrProgressionNotFound
	}
	return cloneState(state), nil
}

// Create implements progression.Repository.
func (r *ProgressionRepository) Create(ctx context.Context, state *progression.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := stateKey{state.UserID, state.Domain}
	if _, ok := r.states[key]; ok {
		return shared.ErrAlreadyExists
	}
	state.Version = 1
	r.states[key] = cloneState(state)
	return nil
}

// Save implements progression.Repository. The write succeeds only when the
// caller's version matches the stored one, and bumps it.
func (r *ProgressionRepository) Save(ctx context.Context, state *progression.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := stateKey{state.UserID, state.Domain}
	stored, ok := r.states[key]
	if !ok {
		return shared.ErrProgressionNotFound
	}
	if stored.Version != state.Version {
		return shared.ErrOptimisticLock
	}
	state.Version++
	r.states[key] = cloneState(state)
	return nil
}

// FindAllByUsers implements progression.Repository.
func (r *ProgressionRepository) FindAllByUsers(ctx context.Context, userIDs []shared.UserID, domain challenge.Domain) (map[shared.UserID]*progression.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make(map[shared.UserID]*progression.State)
	for _, id := range userIDs {
		if state, ok := r.states[stateKey{id, domain}]; ok {
			found[id] = cloneState(state)
		}
	}
	return found, nil
}

func cloneState(s *progression.State) *progression.State {
	c := *s
	c.CompletedLevels = append([]int(nil), s.CompletedLevels...)
	c.Badges = append([]string(nil), s.Badges...)
	return &c
}
