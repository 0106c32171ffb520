package query

import (
	"context"
	"fmt"
	"time"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/progression"
	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Returns a user's progression snapshot for one domain: current level,
// completed levels, badges, and session counts.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery contains progress request parameters.
type GetProgressQuery struct {
	// UserID is the verified identifier of the user.
	UserID string

	// Domain is the practice domain.
	Domain string

	// HistoryLimit caps the number of recent sessions returned
	// (default 20, max 100).
	HistoryLimit int
}

// Validate checks the query parameters.
func (q GetProgressQuery) Validate() error {
	if _, err := shared.NewUserID(q.UserID); err != nil {
		return err
	}
	if _, err := challenge.ParseDomain(q.Domain); err != nil {
		return err
	}
	if q.HistoryLimit < 0 {
		return shared.NewDomainError("query", "GetProgress", shared.ErrValidation, "history limit cannot be negative")
	}
	return nil
}

// SessionDTO is one history row.
type SessionDTO struct {
	ID          string    `json:"id"`
	LevelNumber int       `json:"levelNumber"`
	Score       float64   `json:"score"`
	Passed      bool      `json:"passed"`
	Finalized   bool      `json:"finalized"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GetProgressResult is the progression snapshot.
type GetProgressResult struct {
	Domain          string       `json:"domain"`
	CurrentLevel    int          `json:"currentLevel"`
	CompletedLevels []int        `json:"completedLevels"`
	MaxLevel        int          `json:"maxLevel"`
	AllComplete     bool         `json:"allComplete"`
	Badges          []string     `json:"badges"`
	TotalSessions   int          `json:"totalSessions"`
	History         []SessionDTO `json:"history"`
}

// GetProgressHandler handles progress queries.
type GetProgressHandler struct {
	catalog     *challenge.Catalog
	stateRepo   progression.Repository
	sessionRepo session.Repository
}

// NewGetProgressHandler creates a new GetProgressHandler.
func NewGetProgressHandler(
	catalog *challenge.Catalog,
	stateRepo progression.Repository,
	sessionRepo session.Repository,
) *GetProgressHandler {
	return &GetProgressHandler{
		catalog:     catalog,
		stateRepo:   stateRepo,
		sessionRepo: sessionRepo,
	}
}

// Handle executes the progress query. A user who never submitted in the
// domain gets the fresh level-1 view rather than a not-found error.
func (h *GetProgressHandler) Handle(ctx context.Context, query GetProgressQuery) (*GetProgressResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	userID, _ := shared.NewUserID(query.UserID)
	domain, _ := challenge.ParseDomain(query.Domain)
	maxLevel := h.catalog.MaxLevel(domain)

	state, err := h.stateRepo.Find(ctx, userID, domain)
	switch {
	case shared.IsNotFound(err):
		state = progression.NewState(userID, domain)
	case err != nil:
		return nil, fmt.Errorf("get_progress: failed to load progression: %w", err)
	}

	count, err := h.sessionRepo.CountByUser(ctx, userID, domain)
	if err != nil {
		return nil, fmt.Errorf("get_progress: failed to count sessions: %w", err)
	}

	records, err := h.sessionRepo.ListByUser(ctx, userID, domain, shared.NewPagination(1, query.HistoryLimit))
	if err != nil {
		return nil, fmt.Errorf("get_progress: failed to load session history: %w", err)
	}

	history := make([]SessionDTO, 0, len(records))
	for _, rec := range records {
		history = append(history, SessionDTO{
			ID:          rec.ID,
			LevelNumber: rec.LevelNumber,
			Score:       rec.Score.Float64(),
			Passed:      rec.Passed,
			Finalized:   rec.Finalized,
			CreatedAt:   rec.CreatedAt,
		})
	}

	return &GetProgressResult{
		Domain:          domain.String(),
		CurrentLevel:    state.CurrentLevel,
		CompletedLevels: append([]int{}, state.CompletedLevels...),
		MaxLevel:        maxLevel,
		AllComplete:     state.AllComplete(maxLevel),
		Badges:          append([]string{}, state.Badges...),
		TotalSessions:   count,
		History:         history,
	}, nil
}
