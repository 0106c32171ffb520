package query

import (
	"context"
	"fmt"
	"math"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PACE SUMMARY QUERY
// Aggregate statistics over a user's pace practice sessions.
// ══════════════════════════════════════════════════════════════════════════════

// GetPaceSummaryQuery contains pace summary request parameters.
type GetPaceSummaryQuery struct {
	// UserID is the verified identifier of the user.
	UserID string
}

// Validate checks the query parameters.
func (q GetPaceSummaryQuery) Validate() error {
	_, err := shared.NewUserID(q.UserID)
	return err
}

// GetPaceSummaryResult contains the aggregate pace statistics.
type GetPaceSummaryResult struct {
	// TotalSessions is the number of recorded pace sessions.
	TotalSessions int `json:"totalSessions"`

	// TotalPracticeSeconds is the summed session duration.
	TotalPracticeSeconds float64 `json:"totalPracticeTime"`

	// AverageWPM is the mean words-per-minute across sessions that
	// reported one, rounded to two decimals.
	AverageWPM float64 `json:"avgWPM"`

	// AverageConsistency is the mean consistency score across sessions
	// that reported one, rounded to two decimals.
	AverageConsistency float64 `json:"avgConsistency"`
}

// GetPaceSummaryHandler handles pace summary queries.
type GetPaceSummaryHandler struct {
	sessionRepo session.Repository
}

// NewGetPaceSummaryHandler creates a new GetPaceSummaryHandler.
func NewGetPaceSummaryHandler(sessionRepo session.Repository) *GetPaceSummaryHandler {
	return &GetPaceSummaryHandler{sessionRepo: sessionRepo}
}

// Handle executes the pace summary query. A user with no sessions gets the
// zero summary.
func (h *GetPaceSummaryHandler) Handle(ctx context.Context, query GetPaceSummaryQuery) (*GetPaceSummaryResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	userID, _ := shared.NewUserID(query.UserID)

	records, err := h.sessionRepo.ListAllByUser(ctx, userID, challenge.DomainPace)
	if err != nil {
		return nil, fmt.Errorf("get_pace_summary: failed to load sessions: %w", err)
	}

	result := &GetPaceSummaryResult{TotalSessions: len(records)}

	var wpmSum, consistencySum float64
	var wpmCount, consistencyCount int
	for _, rec := range records {
		if rec.Metrics.DurationSeconds != nil {
			result.TotalPracticeSeconds += *rec.Metrics.DurationSeconds
		}
		if rec.Metrics.AverageWPM != nil {
			wpmSum += *rec.Metrics.AverageWPM
			wpmCount++
		}
		if rec.Metrics.ConsistencyScore != nil {
			consistencySum += *rec.Metrics.ConsistencyScore
			consistencyCount++
		}
	}

	if wpmCount > 0 {
		result.AverageWPM = round2(wpmSum / float64(wpmCount))
	}
	if consistencyCount > 0 {
		result.AverageConsistency = round2(consistencySum / float64(consistencyCount))
	}
	return result, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
