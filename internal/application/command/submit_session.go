package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Speak-Craft/backend/internal/domain/badge"
	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/progression"
	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT SESSION COMMAND
// The core write path: evaluates one practice session, records it, advances
// the user's progression, awards badges, and publishes the resulting events.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitSessionCommand contains one practice session's raw metrics.
type SubmitSessionCommand struct {
	// UserID is the verified identifier of the user.
	UserID string

	// Domain is the practice domain the session belongs to.
	Domain string

	// LevelNumber optionally targets a specific catalog level. Zero derives
	// the user's current level.
	LevelNumber int

	// Metrics are the externally computed measurements for the session.
	Metrics session.RawMetrics
}

// Validate validates the command.
func (c SubmitSessionCommand) Validate() error {
	if _, err := shared.NewUserID(c.UserID); err != nil {
		return err
	}
	if _, err := challenge.ParseDomain(c.Domain); err != nil {
		return err
	}
	if c.LevelNumber < 0 {
		return shared.NewDomainError("command", "SubmitSession", shared.ErrNegativeValue, "level number cannot be negative")
	}
	return nil
}

// SubmitSessionResult describes what the submission did.
type SubmitSessionResult struct {
	// SessionID identifies the stored session record.
	SessionID string

	// Passed indicates whether the session met its level's criteria.
	Passed bool

	// Score is the normalized 0-100 score.
	Score float64

	// LevelNumber is the level the session was evaluated against
	// (zero for domains without levels).
	LevelNumber int

	// LevelCompleted indicates the session completed its level.
	LevelCompleted bool

	// AllLevelsComplete indicates the whole domain is now finished.
	AllLevelsComplete bool

	// NextLevel is the level to attempt next.
	NextLevel int

	// NewBadges lists badge identifiers earned by this session.
	NewBadges []string

	// Amended indicates an in-progress record was updated rather than a
	// new one appended.
	Amended bool

	// Loudness detail, populated for the loudness domain only.
	SecondsAboveThreshold float64
	PercentAboveThreshold float64
	Steadiness            float64
}

// SubmitSessionHandler handles the SubmitSessionCommand.
type SubmitSessionHandler struct {
	catalog     *challenge.Catalog
	evaluator   *session.Evaluator
	tracker     *progression.Tracker
	badges      *badge.Engine
	stateRepo   progression.Repository
	sessionRepo session.Repository
	publisher   shared.EventPublisher
}

// NewSubmitSessionHandler creates a new SubmitSessionHandler.
func NewSubmitSessionHandler(
	catalog *challenge.Catalog,
	stateRepo progression.Repository,
	sessionRepo session.Repository,
	publisher shared.EventPublisher,
) *SubmitSessionHandler {
	return &SubmitSessionHandler{
		catalog:     catalog,
		evaluator:   session.NewEvaluator(catalog),
		tracker:     progression.NewTracker(catalog),
		badges:      badge.NewEngine(),
		stateRepo:   stateRepo,
		sessionRepo: sessionRepo,
		publisher:   publisher,
	}
}

// Handle executes the submit session command.
//
// Concurrent submissions for the same (user, domain) race on the progression
// state's version token; the loser gets a conflict error and the caller
// retries the whole submission. The session record is written only after the
// version check passes, so a lost race stores nothing and the retry does not
// leave a duplicate evaluated against a stale level.
func (h *SubmitSessionHandler) Handle(ctx context.Context, cmd SubmitSessionCommand) (*SubmitSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("submit_session: validation failed: %w", err)
	}

	userID, _ := shared.NewUserID(cmd.UserID)
	domain, _ := challenge.ParseDomain(cmd.Domain)

	state, created, err := h.loadOrCreateState(ctx, userID, domain)
	if err != nil {
		return nil, fmt.Errorf("submit_session: failed to load progression: %w", err)
	}

	levelNumber := h.evaluationLevel(state)
	if cmd.LevelNumber > 0 {
		// Levels are contiguous from 1, so anything below the current level
		// is a level the progression has already moved past.
		if cmd.LevelNumber < state.CurrentLevel {
			return nil, shared.ErrLevelAlreadyPassed
		}
		levelNumber = cmd.LevelNumber
	}
	level := challenge.Level{Domain: domain, Number: levelNumber}
	if levelNumber > 0 {
		level, err = h.catalog.Lookup(domain, levelNumber)
		if err != nil {
			return nil, err
		}
	}

	verdict, err := h.evaluator.Evaluate(domain, level, cmd.Metrics)
	if err != nil {
		return nil, err
	}

	record, amended, err := h.stageRecord(ctx, userID, domain, levelNumber, cmd.Metrics, verdict)
	if err != nil {
		return nil, fmt.Errorf("submit_session: failed to prepare session record: %w", err)
	}

	outcome := h.tracker.RecordAttempt(state, levelNumber, verdict)

	completedLevel := 0
	if outcome.Advanced {
		completedLevel = levelNumber
	}
	badgeInput, err := h.buildBadgeInput(ctx, userID, domain, cmd.Metrics, amended, completedLevel)
	if err != nil {
		return nil, fmt.Errorf("submit_session: failed to gather badge context: %w", err)
	}
	newBadges := state.AddBadges(h.badges.Evaluate(state.Badges, badgeInput))

	if !created || outcome.Advanced || len(newBadges) > 0 {
		if err := h.stateRepo.Save(ctx, state); err != nil {
			if errors.Is(err, shared.ErrOptimisticLock) {
				return nil, shared.ErrProgressionConflict
			}
			return nil, fmt.Errorf("submit_session: failed to save progression: %w", err)
		}
	}

	if amended {
		err = h.sessionRepo.Update(ctx, record)
	} else {
		err = h.sessionRepo.Save(ctx, record)
	}
	if err != nil {
		return nil, fmt.Errorf("submit_session: failed to store session: %w", err)
	}

	h.publish(userID, domain, record, verdict, outcome, newBadges, amended)

	return &SubmitSessionResult{
		SessionID:             record.ID,
		Passed:                verdict.Passed,
		Score:                 verdict.Score.Float64(),
		LevelNumber:           levelNumber,
		LevelCompleted:        outcome.Advanced,
		AllLevelsComplete:     outcome.AllComplete,
		NextLevel:             outcome.NextLevel,
		NewBadges:             newBadges,
		Amended:               amended,
		SecondsAboveThreshold: verdict.SecondsAboveThreshold,
		PercentAboveThreshold: verdict.PercentAboveThreshold,
		Steadiness:            verdict.Steadiness,
	}, nil
}

// evaluationLevel picks the level a submission is judged against: the
// current level, clamped to the last one once everything is complete, and
// zero for domains without a level structure.
func (h *SubmitSessionHandler) evaluationLevel(state *progression.State) int {
	max := h.catalog.MaxLevel(state.Domain)
	if max == 0 {
		return 0
	}
	if state.CurrentLevel > max {
		return max
	}
	return state.CurrentLevel
}

func (h *SubmitSessionHandler) loadOrCreateState(ctx context.Context, userID shared.UserID, domain challenge.Domain) (*progression.State, bool, error) {
	state, err := h.stateRepo.Find(ctx, userID, domain)
	if err == nil {
		return state, false, nil
	}
	if !shared.IsNotFound(err) {
		return nil, false, err
	}

	state = progression.NewState(userID, domain)
	if err := h.stateRepo.Create(ctx, state); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			state, err = h.stateRepo.Find(ctx, userID, domain)
			return state, false, err
		}
		return nil, false, err
	}
	return state, true, nil
}

// stageRecord prepares the session record to write: the amended active record
// in domains configured for in-place updates, a fresh finalized record
// otherwise. Nothing is persisted here; the write happens after the guarded
// progression save.
func (h *SubmitSessionHandler) stageRecord(
	ctx context.Context,
	userID shared.UserID,
	domain challenge.Domain,
	levelNumber int,
	metrics session.RawMetrics,
	verdict session.Verdict,
) (*session.Record, bool, error) {
	if h.catalog.Policy(domain).AmendableSessions {
		active, err := h.sessionRepo.FindActive(ctx, userID, domain)
		switch {
		case err == nil:
			if amendErr := active.Amend(metrics, verdict); amendErr != nil {
				return nil, false, amendErr
			}
			return active, true, nil
		case !shared.IsNotFound(err):
			return nil, false, err
		}
	}

	return session.NewRecord(userID, domain, levelNumber, metrics, verdict), false, nil
}

func (h *SubmitSessionHandler) buildBadgeInput(
	ctx context.Context,
	userID shared.UserID,
	domain challenge.Domain,
	metrics session.RawMetrics,
	amended bool,
	completedLevel int,
) (badge.Input, error) {
	count, err := h.sessionRepo.CountByUser(ctx, userID, domain)
	if err != nil {
		return badge.Input{}, err
	}
	// An amended submission reuses a counted record; a fresh one is not
	// stored yet and counts itself.
	if !amended {
		count++
	}
	days, err := h.sessionRepo.ActiveDays(ctx, userID, domain)
	if err != nil {
		return badge.Input{}, err
	}
	days = append(days, time.Now().UTC())

	return badge.Input{
		Metrics:         metrics,
		ActivityOrdinal: count,
		CompletedLevel:  completedLevel,
		ActiveDays:      days,
	}, nil
}

func (h *SubmitSessionHandler) publish(
	userID shared.UserID,
	domain challenge.Domain,
	record *session.Record,
	verdict session.Verdict,
	outcome progression.Outcome,
	newBadges []string,
	amended bool,
) {
	if h.publisher == nil {
		return
	}

	submitted := shared.NewSessionSubmittedEvent(userID.String(), domain.String(), record.LevelNumber, verdict.Passed, verdict.Score.Float64())
	if amended {
		submitted.Type = shared.EventSessionAmended
	}
	_ = h.publisher.Publish(submitted)

	if outcome.Advanced {
		_ = h.publisher.Publish(shared.NewLevelCompletedEvent(userID.String(), domain.String(), record.LevelNumber, outcome.NextLevel, outcome.AllComplete))
		if outcome.AllComplete {
			_ = h.publisher.Publish(shared.NewDomainCompletedEvent(userID.String(), domain.String()))
		}
	}
	if len(newBadges) > 0 {
		_ = h.publisher.Publish(shared.NewBadgeAwardedEvent(userID.String(), domain.String(), newBadges))
	}
	if verdict.Passed {
		_ = h.publisher.Publish(shared.NewLeaderboardInvalidatedEvent(domain.String()))
	}
}
