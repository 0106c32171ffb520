// Package progression contains the per-user, per-domain progression state
// machine: which level is active, which are completed, and which badges the
// user holds. State transitions are driven by the tracker and persisted as
// one atomic read-modify-write per (user, domain) key.
package progression

import (
	"sort"
	"time"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// State is the progression record for one (user, domain) pair.
//
// Invariants:
//   - CompletedLevels is a contiguous prefix {1..k} for some k >= 0.
//   - CurrentLevel == k+1; once k equals the catalog's max level the state
//     is "all complete" and CurrentLevel points one past the last level.
//   - A badge identifier appears at most once in Badges.
type State struct {
	UserID shared.UserID
	Domain challenge.Domain

	CurrentLevel    int
	CompletedLevels []int
	Badges          []string

	// Version is the optimistic concurrency token. The store rejects a
	// write whose version does not match the stored row.
	Version int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewState creates a fresh progression state at level 1. States are created
// lazily on first session submission for a (user, domain) pair.
func NewState(userID shared.UserID, domain challenge.Domain) *State {
	now := time.Now().UTC()
	return &State{
		UserID:       userID,
		Domain:       domain,
		CurrentLevel: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CompletedCount returns k, the size of the completed prefix.
func (s *State) CompletedCount() int {
	return len(s.CompletedLevels)
}

// HasCompleted reports whether a level is already completed.
func (s *State) HasCompleted(level int) bool {
	return level >= 1 && level <= len(s.CompletedLevels)
}

// AllComplete reports whether every catalog level is completed.
func (s *State) AllComplete(maxLevel int) bool {
	return maxLevel > 0 && len(s.CompletedLevels) >= maxLevel
}

// recordPass marks the current level passed and advances. Passing an
// already-completed level is a no-op (idempotent). Returns whether the
// state advanced.
func (s *State) recordPass(level int) bool {
	if s.HasCompleted(level) || level != s.CurrentLevel {
		return false
	}
	s.CompletedLevels = append(s.CompletedLevels, level)
	s.CurrentLevel = level + 1
	s.UpdatedAt = time.Now().UTC()
	return true
}

// AddBadges unions badge identifiers into the state and returns the ones
// that were actually new. Awarding is idempotent.
func (s *State) AddBadges(candidates []string) []string {
	existing := make(map[string]struct{}, len(s.Badges))
	for _, b := range s.Badges {
		existing[b] = struct{}{}
	}

	var added []string
	for _, b := range candidates {
		if _, ok := existing[b]; ok {
			continue
		}
		existing[b] = struct{}{}
		s.Badges = append(s.Badges, b)
		added = append(added, b)
	}
	if len(added) > 0 {
		s.UpdatedAt = time.Now().UTC()
	}
	return added
}

// HasBadge reports whether the badge identifier is already held.
func (s *State) HasBadge(id string) bool {
	for _, b := range s.Badges {
		if b == id {
			return true
		}
	}
	return false
}

// CheckInvariant verifies the contiguous-prefix invariant. Storage layers
// call this after loading to catch corrupted rows early.
func (s *State) CheckInvariant() error {
	levels := append([]int(nil), s.CompletedLevels...)
	sort.Ints(levels)
	for i, lvl := range levels {
		if lvl != i+1 {
			return shared.NewDomainError("progression", "CheckInvariant", shared.ErrInvalidState,
				"completed levels are not a contiguous prefix from 1")
		}
	}
	if s.CurrentLevel != len(levels)+1 {
		return shared.NewDomainError("progression", "CheckInvariant", shared.ErrInvalidState,
			"current level does not follow the completed prefix")
	}
	return nil
}
