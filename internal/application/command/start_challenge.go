// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/progression"
	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// START CHALLENGE COMMAND
// Hands the user their current level in a domain, creating an in-progress
// session record for domains that track one attempt at a time.
// ══════════════════════════════════════════════════════════════════════════════

// StartChallengeCommand contains the data to start a challenge attempt.
type StartChallengeCommand struct {
	// UserID is the verified identifier of the user.
	UserID string

	// Domain is the practice domain to start in.
	Domain string

	// LevelNumber optionally requests a specific catalog level. Zero hands
	// out the user's current level.
	LevelNumber int
}

// Validate validates the command.
func (c StartChallengeCommand) Validate() error {
	if _, err := shared.NewUserID(c.UserID); err != nil {
		return err
	}
	if _, err := challenge.ParseDomain(c.Domain); err != nil {
		return err
	}
	if c.LevelNumber < 0 {
		return shared.NewDomainError("command", "StartChallenge", shared.ErrNegativeValue, "level number cannot be negative")
	}
	return nil
}

// StartChallengeResult contains the assigned level.
type StartChallengeResult struct {
	// Domain is the practice domain.
	Domain challenge.Domain

	// Level is the level the user should attempt.
	Level challenge.Level

	// Resumed indicates an existing in-progress attempt was returned
	// instead of a fresh one.
	Resumed bool

	// SessionID identifies the in-progress session record, when the domain
	// tracks one (empty otherwise).
	SessionID string
}

// StartChallengeHandler handles the StartChallengeCommand.
type StartChallengeHandler struct {
	catalog     *challenge.Catalog
	tracker     *progression.Tracker
	stateRepo   progression.Repository
	sessionRepo session.Repository
}

// NewStartChallengeHandler creates a new StartChallengeHandler.
func NewStartChallengeHandler(
	catalog *challenge.Catalog,
	stateRepo progression.Repository,
	sessionRepo session.Repository,
) *StartChallengeHandler {
	return &StartChallengeHandler{
		catalog:     catalog,
		tracker:     progression.NewTracker(catalog),
		stateRepo:   stateRepo,
		sessionRepo: sessionRepo,
	}
}

// Handle executes the start challenge command.
func (h *StartChallengeHandler) Handle(ctx context.Context, cmd StartChallengeCommand) (*StartChallengeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("start_challenge: validation failed: %w", err)
	}

	userID, _ := shared.NewUserID(cmd.UserID)
	domain, _ := challenge.ParseDomain(cmd.Domain)

	state, err := h.loadOrCreateState(ctx, userID, domain)
	if err != nil {
		return nil, fmt.Errorf("start_challenge: failed to load progression: %w", err)
	}

	var assignment progression.Assignment
	if cmd.LevelNumber > 0 {
		level, err := h.catalog.Lookup(domain, cmd.LevelNumber)
		if err != nil {
			return nil, err
		}
		if cmd.LevelNumber < state.CurrentLevel {
			return nil, shared.ErrLevelAlreadyPassed
		}
		assignment = progression.Assignment{Level: level}
	} else {
		assignment, err = h.tracker.Start(state)
		if err != nil {
			return nil, err
		}
	}

	result := &StartChallengeResult{
		Domain: domain,
		Level:  assignment.Level,
	}

	if !h.catalog.Policy(domain).SingleAttempt {
		return result, nil
	}

	// Single-attempt domains hand back the active record when one exists.
	active, err := h.sessionRepo.FindActive(ctx, userID, domain)
	switch {
	case err == nil:
		result.Resumed = true
		result.SessionID = active.ID
		if lvl, lookupErr := h.catalog.Lookup(domain, active.LevelNumber); lookupErr == nil {
			result.Level = lvl
		}
		return result, nil
	case !shared.IsNotFound(err):
		return nil, fmt.Errorf("start_challenge: failed to check active session: %w", err)
	}

	record := session.NewAmendableRecord(userID, domain, assignment.Level.Number)
	if err := h.sessionRepo.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("start_challenge: failed to create session: %w", err)
	}
	result.SessionID = record.ID
	return result, nil
}

func (h *StartChallengeHandler) loadOrCreateState(ctx context.Context, userID shared.UserID, domain challenge.Domain) (*progression.State, error) {
	state, err := h.stateRepo.Find(ctx, userID, domain)
	if err == nil {
		return state, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}

	state = progression.NewState(userID, domain)
	if err := h.stateRepo.Create(ctx, state); err != nil {
		// Another request created it first; use theirs.
		if errors.Is(err, shared.ErrAlreadyExists) {
			return h.stateRepo.Find(ctx, userID, domain)
		}
		return nil, err
	}
	return state, nil
}
