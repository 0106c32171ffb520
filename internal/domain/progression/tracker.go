package progression

import (
	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// Tracker applies level transitions against the challenge catalog. It is
// domain-agnostic: per-domain differences live in the catalog's level
// tables and policy flags, not here.
type Tracker struct {
	catalog *challenge.Catalog
}

// NewTracker creates a tracker backed by the given catalog.
func NewTracker(catalog *challenge.Catalog) *Tracker {
	return &Tracker{catalog: catalog}
}

// Assignment is the level handed to a user when they start a challenge.
type Assignment struct {
	Level challenge.Level

	// Resumed is true when an in-progress attempt was returned instead of
	// a fresh one (single-attempt domains).
	Resumed bool
}

// Start returns the level the user should attempt next. Fails with an
// AlreadyComplete kind when no next level exists in the catalog.
func (t *Tracker) Start(state *State) (Assignment, error) {
	max := t.catalog.MaxLevel(state.Domain)
	if max == 0 {
		return Assignment{}, shared.ErrNoLevelsForDomain
	}
	if state.CurrentLevel > max {
		return Assignment{}, shared.ErrAllLevelsComplete
	}

	level, err := t.catalog.Lookup(state.Domain, state.CurrentLevel)
	if err != nil {
		return Assignment{}, err
	}
	return Assignment{Level: level}, nil
}

// Outcome describes what a recorded attempt did to the progression state.
type Outcome struct {
	// Advanced is true when the current level was completed.
	Advanced bool

	// AllComplete is true when the last catalog level was completed.
	AllComplete bool

	// NextLevel is the level to attempt next; equal to maxLevel+1 when
	// everything is complete.
	NextLevel int
}

// RecordAttempt folds a verdict into the state. A failed verdict leaves the
// state unchanged; a pass at the current level advances it; a pass at an
// already-completed level is a no-op. The session record is persisted by
// the caller in every case.
func (t *Tracker) RecordAttempt(state *State, level int, verdict session.Verdict) Outcome {
	max := t.catalog.MaxLevel(state.Domain)

	if verdict.Passed {
		if state.recordPass(level) {
			return Outcome{
				Advanced:    true,
				AllComplete: state.AllComplete(max),
				NextLevel:   state.CurrentLevel,
			}
		}
	}
	return Outcome{
		Advanced:    false,
		AllComplete: state.AllComplete(max),
		NextLevel:   state.CurrentLevel,
	}
}
