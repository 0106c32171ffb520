package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/internal/domain/shared"
	"github.com/Speak-Craft/backend/internal/infrastructure/persistence/memory"
)

func TestStartChallenge_RequestedLevel(t *testing.T) {
	catalog := challenge.Default()
	stateRepo := memory.NewProgressionRepository()
	sessionRepo := memory.NewSessionRepository()
	start := NewStartChallengeHandler(catalog, stateRepo, sessionRepo)
	ctx := context.Background()

	// A specific level can be requested ahead of the current one.
	result, err := start.Handle(ctx, StartChallengeCommand{
		UserID:      testUser,
		Domain:      "emotion",
		LevelNumber: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Level.Number)
	require.NotNil(t, result.Level.Emotion)
	assert.InDelta(t, 75, result.Level.Emotion.TargetAlignmentPercent, 1e-9)
}

func TestStartChallenge_RequestedLevelNotInCatalog(t *testing.T) {
	catalog := challenge.Default()
	start := NewStartChallengeHandler(catalog, memory.NewProgressionRepository(), memory.NewSessionRepository())

	_, err := start.Handle(context.Background(), StartChallengeCommand{
		UserID:      testUser,
		Domain:      "emotion",
		LevelNumber: 9,
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestStartChallenge_RequestedLevelAlreadyPassed(t *testing.T) {
	catalog := challenge.Default()
	stateRepo := memory.NewProgressionRepository()
	sessionRepo := memory.NewSessionRepository()
	start := NewStartChallengeHandler(catalog, stateRepo, sessionRepo)
	submit := NewSubmitSessionHandler(catalog, stateRepo, sessionRepo, nil)
	ctx := context.Background()

	// Complete emotion level 1 (target alignment 70).
	result, err := submit.Handle(ctx, SubmitSessionCommand{
		UserID:  testUser,
		Domain:  "emotion",
		Metrics: session.RawMetrics{AlignmentScore: floatPtr(80)},
	})
	require.NoError(t, err)
	require.True(t, result.LevelCompleted)

	_, err = start.Handle(ctx, StartChallengeCommand{
		UserID:      testUser,
		Domain:      "emotion",
		LevelNumber: 1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrLevelAlreadyPassed)
	assert.True(t, shared.IsConflict(err))
}
