package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Speak-Craft/backend/internal/application/command"
	"github.com/Speak-Craft/backend/internal/application/query"
	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/internal/domain/shared"
	"github.com/Speak-Craft/backend/pkg/logger"
)

// userIDHeader identifies the practicing user. Authentication of the user
// itself happens upstream; this service trusts the gateway-provided identity.
const userIDHeader = "X-User-ID"

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": s.Uptime().String(),
	})
}

// handleReady handles the readiness probe endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// levelDTO renders a challenge level with its domain-specific thresholds.
type levelDTO struct {
	Number   int                           `json:"number"`
	Filler   *challenge.FillerThresholds   `json:"filler,omitempty"`
	Loudness *challenge.LoudnessThresholds `json:"loudness,omitempty"`
	Emotion  *challenge.EmotionThresholds  `json:"emotion,omitempty"`
}

func newLevelDTO(level challenge.Level) levelDTO {
	return levelDTO{
		Number:   level.Number,
		Filler:   level.Filler,
		Loudness: level.Loudness,
		Emotion:  level.Emotion,
	}
}

type startChallengeResponse struct {
	Domain    string   `json:"domain"`
	Level     levelDTO `json:"level"`
	Resumed   bool     `json:"resumed"`
	SessionID string   `json:"sessionId,omitempty"`
}

// handleStartChallenge handles POST /api/v1/challenges/{domain}/start.
func (s *Server) handleStartChallenge(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUserID(w, r)
	if !ok {
		return
	}

	result, err := s.deps.StartChallenge.Handle(r.Context(), command.StartChallengeCommand{
		UserID:      userID,
		Domain:      chi.URLParam(r, "domain"),
		LevelNumber: queryParamInt(r, "level", 0),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, startChallengeResponse{
		Domain:    result.Domain.String(),
		Level:     newLevelDTO(result.Level),
		Resumed:   result.Resumed,
		SessionID: result.SessionID,
	})
}

type submitSessionRequest struct {
	// LevelNumber optionally targets a specific level; zero means the
	// user's current one.
	LevelNumber int `json:"levelNumber"`

	Metrics session.RawMetrics `json:"metrics"`
}

type submitSessionResponse struct {
	SessionID         string   `json:"sessionId"`
	Passed            bool     `json:"passed"`
	Score             float64  `json:"score"`
	LevelNumber       int      `json:"levelNumber"`
	LevelCompleted    bool     `json:"levelCompleted"`
	AllLevelsComplete bool     `json:"allLevelsComplete"`
	NextLevel         int      `json:"nextLevel"`
	NewBadges         []string `json:"newBadges"`
	Amended           bool     `json:"amended"`

	Loudness *loudnessDetail `json:"loudness,omitempty"`
}

type loudnessDetail struct {
	SecondsAboveThreshold float64 `json:"secondsAboveThreshold"`
	PercentAboveThreshold float64 `json:"percentAboveThreshold"`
	Steadiness            float64 `json:"steadiness"`
}

// handleSubmitSession handles POST /api/v1/challenges/{domain}/sessions.
func (s *Server) handleSubmitSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUserID(w, r)
	if !ok {
		return
	}

	var req submitSessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	domain := chi.URLParam(r, "domain")
	result, err := s.deps.SubmitSession.Handle(r.Context(), command.SubmitSessionCommand{
		UserID:      userID,
		Domain:      domain,
		LevelNumber: req.LevelNumber,
		Metrics:     req.Metrics,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := submitSessionResponse{
		SessionID:         result.SessionID,
		Passed:            result.Passed,
		Score:             result.Score,
		LevelNumber:       result.LevelNumber,
		LevelCompleted:    result.LevelCompleted,
		AllLevelsComplete: result.AllLevelsComplete,
		NextLevel:         result.NextLevel,
		NewBadges:         result.NewBadges,
		Amended:           result.Amended,
	}
	if domain == challenge.DomainLoudness.String() {
		resp.Loudness = &loudnessDetail{
			SecondsAboveThreshold: result.SecondsAboveThreshold,
			PercentAboveThreshold: result.PercentAboveThreshold,
			Steadiness:            result.Steadiness,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleGetProgress handles GET /api/v1/challenges/{domain}/progress.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUserID(w, r)
	if !ok {
		return
	}

	result, err := s.deps.GetProgress.Handle(r.Context(), query.GetProgressQuery{
		UserID:       userID,
		Domain:       chi.URLParam(r, "domain"),
		HistoryLimit: queryParamInt(r, "history", 0),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD & SUMMARY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/leaderboard/{domain}.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetLeaderboard.Handle(r.Context(), query.GetLeaderboardQuery{
		Domain: chi.URLParam(r, "domain"),
		Limit:  queryParamInt(r, "limit", 0),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetUserRank handles GET /api/v1/leaderboard/{domain}/me.
func (s *Server) handleGetUserRank(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUserID(w, r)
	if !ok {
		return
	}

	result, err := s.deps.GetUserRank.Handle(r.Context(), query.GetUserRankQuery{
		UserID: userID,
		Domain: chi.URLParam(r, "domain"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetPaceSummary handles GET /api/v1/pace/summary.
func (s *Server) handleGetPaceSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUserID(w, r)
	if !ok {
		return
	}

	result, err := s.deps.GetPaceSummary.Handle(r.Context(), query.GetPaceSummaryQuery{
		UserID: userID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing_user", "X-User-ID header is required")
		return "", false
	}
	return userID, true
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, "empty_body", "Request body is required")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "malformed_body", "Request body is not valid JSON")
		return false
	}
	return true
}

func queryParamInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// writeError maps domain error kinds to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsInvalidMetrics(err):
		writeJSONError(w, http.StatusBadRequest, "invalid_metrics", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsAlreadyComplete(err):
		writeJSONError(w, http.StatusConflict, "already_complete", err.Error())
	case shared.IsConflict(err):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	default:
		s.logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Err(err),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
