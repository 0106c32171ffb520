package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// Record is one submitted practice session. Records are append-only facts:
// created once, never deleted by the engine. The loudness domain is the
// exception - its records are amendable while in progress and become
// immutable once finalized.
type Record struct {
	ID          string
	UserID      shared.UserID
	Domain      challenge.Domain
	LevelNumber int
	Metrics     RawMetrics
	Score       shared.Score
	Passed      bool

	// Finalized - once true the record can no longer be amended.
	Finalized bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord creates a finalized session record for append-only domains.
func NewRecord(userID shared.UserID, domain challenge.Domain, level int, metrics RawMetrics, verdict Verdict) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:          uuid.NewString(),
		UserID:      userID,
		Domain:      domain,
		LevelNumber: level,
		Metrics:     metrics,
		Score:       verdict.Score,
		Passed:      verdict.Passed,
		Finalized:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewAmendableRecord creates an in-progress record that later submissions
// amend until the level is passed (loudness behavior).
func NewAmendableRecord(userID shared.UserID, domain challenge.Domain, level int) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:          uuid.NewString(),
		UserID:      userID,
		Domain:      domain,
		LevelNumber: level,
		Finalized:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Amend updates an in-progress record with a new evaluation. Fails once the
// record is finalized.
func (r *Record) Amend(metrics RawMetrics, verdict Verdict) error {
	if r.Finalized {
		return shared.ErrSessionFinal
	}
	r.Metrics = metrics
	r.Score = verdict.Score
	r.Passed = verdict.Passed
	r.UpdatedAt = time.Now().UTC()
	if verdict.Passed {
		r.Finalized = true
	}
	return nil
}
