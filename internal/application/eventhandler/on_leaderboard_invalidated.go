// Package eventhandler contains subscribers that react to domain events.
package eventhandler

import (
	"context"
	"time"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/leaderboard"
	"github.com/Speak-Craft/backend/internal/domain/shared"
	"github.com/Speak-Craft/backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON LEADERBOARD INVALIDATED
// Drops the cached ranking for a domain whenever a passed session lands, so
// the next read recomputes fresh standings.
// ══════════════════════════════════════════════════════════════════════════════

// OnLeaderboardInvalidatedHandler reacts to leaderboard invalidation events.
type OnLeaderboardInvalidatedHandler struct {
	cache   leaderboard.Cache
	logger  *logger.Logger
	timeout time.Duration
}

// NewOnLeaderboardInvalidatedHandler creates the handler. The cache may be
// nil; the handler then does nothing.
func NewOnLeaderboardInvalidatedHandler(cache leaderboard.Cache, log *logger.Logger) *OnLeaderboardInvalidatedHandler {
	return &OnLeaderboardInvalidatedHandler{
		cache:   cache,
		logger:  log,
		timeout: 5 * time.Second,
	}
}

// EventType returns the event type this handler subscribes to.
func (h *OnLeaderboardInvalidatedHandler) EventType() shared.EventType {
	return shared.EventLeaderboardInvalidated
}

// Handle processes a leaderboard invalidation event.
func (h *OnLeaderboardInvalidatedHandler) Handle(event shared.Event) error {
	if h.cache == nil {
		return nil
	}

	invalidated, ok := event.(shared.LeaderboardInvalidatedEvent)
	if !ok {
		return nil
	}

	domain, err := challenge.ParseDomain(invalidated.Domain)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.cache.Invalidate(ctx, domain); err != nil {
		if h.logger != nil {
			h.logger.Warn("failed to invalidate leaderboard cache",
				logger.Domain(domain.String()),
				logger.Err(err))
		}
		return err
	}

	if h.logger != nil {
		h.logger.Debug("leaderboard cache invalidated",
			logger.Domain(domain.String()))
	}
	return nil
}
