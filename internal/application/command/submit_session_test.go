package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/progression"
	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/internal/domain/shared"
	"github.com/Speak-Craft/backend/internal/infrastructure/persistence/memory"
)

const testUser = "9f1b2c3d-4e5f-4a6b-8c7d-0e1f2a3b4c5d"

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

type capturingPublisher struct {
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) types() []shared.EventType {
	var out []shared.EventType
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

func newSubmitFixture(t *testing.T) (*SubmitSessionHandler, *memory.ProgressionRepository, *memory.SessionRepository, *capturingPublisher) {
	t.Helper()
	catalog := challenge.Default()
	stateRepo := memory.NewProgressionRepository()
	sessionRepo := memory.NewSessionRepository()
	publisher := &capturingPublisher{}
	return NewSubmitSessionHandler(catalog, stateRepo, sessionRepo, publisher), stateRepo, sessionRepo, publisher
}

func fillerMetrics(durationSec float64, fillers int) session.RawMetrics {
	return session.RawMetrics{
		DurationSeconds: floatPtr(durationSec),
		FillerCount:     intPtr(fillers),
	}
}

func TestSubmitSession_FillerPassAdvancesAndAwards(t *testing.T) {
	handler, stateRepo, _, publisher := newSubmitFixture(t)

	// Level 1 requires 1 minute with at most 15 fillers.
	result, err := handler.Handle(context.Background(), SubmitSessionCommand{
		UserID:  testUser,
		Domain:  "filler_words",
		Metrics: fillerMetrics(75, 10),
	})
	require.NoError(t, err)

	assert.True(t, result.Passed)
	assert.Equal(t, 100.0, result.Score)
	assert.Equal(t, 1, result.LevelNumber)
	assert.True(t, result.LevelCompleted)
	assert.False(t, result.AllLevelsComplete)
	assert.Equal(t, 2, result.NextLevel)
	assert.Contains(t, result.NewBadges, "first_activity")
	assert.Contains(t, result.NewBadges, "level_1_complete")

	state, err := stateRepo.Find(context.Background(), shared.UserID(testUser), challenge.DomainFillerWords)
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentLevel)
	assert.Equal(t, []int{1}, state.CompletedLevels)
	require.NoError(t, state.CheckInvariant())

	assert.Contains(t, publisher.types(), shared.EventSessionSubmitted)
	assert.Contains(t, publisher.types(), shared.EventLevelCompleted)
	assert.Contains(t, publisher.types(), shared.EventBadgeAwarded)
	assert.Contains(t, publisher.types(), shared.EventLeaderboardInvalidated)
}

func TestSubmitSession_FillerFailLeavesProgression(t *testing.T) {
	handler, stateRepo, sessionRepo, _ := newSubmitFixture(t)

	// Too short and too many fillers.
	result, err := handler.Handle(context.Background(), SubmitSessionCommand{
		UserID:  testUser,
		Domain:  "filler_words",
		Metrics: fillerMetrics(30, 30),
	})
	require.NoError(t, err)

	assert.False(t, result.Passed)
	assert.Less(t, result.Score, 100.0)
	assert.False(t, result.LevelCompleted)
	assert.Equal(t, 1, result.NextLevel)

	state, err := stateRepo.Find(context.Background(), shared.UserID(testUser), challenge.DomainFillerWords)
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentLevel)
	assert.Empty(t, state.CompletedLevels)

	// The failed attempt is still recorded.
	count, err := sessionRepo.CountByUser(context.Background(), shared.UserID(testUser), challenge.DomainFillerWords)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSubmitSession_SequentialLevels(t *testing.T) {
	handler, stateRepo, _, _ := newSubmitFixture(t)
	ctx := context.Background()

	// Pass levels 1 and 2 in order; level 2 requires 1 minute, 10 fillers.
	for i, metrics := range []session.RawMetrics{
		fillerMetrics(70, 12),
		fillerMetrics(70, 8),
	} {
		result, err := handler.Handle(ctx, SubmitSessionCommand{
			UserID:  testUser,
			Domain:  "filler_words",
			Metrics: metrics,
		})
		require.NoError(t, err)
		require.True(t, result.Passed, "attempt %d", i+1)
		require.True(t, result.LevelCompleted, "attempt %d", i+1)
	}

	state, err := stateRepo.Find(ctx, shared.UserID(testUser), challenge.DomainFillerWords)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, state.CompletedLevels)
	assert.Equal(t, 3, state.CurrentLevel)
}

func TestSubmitSession_InvalidMetricsRejected(t *testing.T) {
	handler, _, sessionRepo, _ := newSubmitFixture(t)

	_, err := handler.Handle(context.Background(), SubmitSessionCommand{
		UserID:  testUser,
		Domain:  "filler_words",
		Metrics: session.RawMetrics{},
	})
	require.Error(t, err)
	assert.True(t, shared.IsInvalidMetrics(err))

	// Nothing stored for a rejected submission.
	count, err := sessionRepo.CountByUser(context.Background(), shared.UserID(testUser), challenge.DomainFillerWords)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSubmitSession_LoudnessAmendsActiveRecord(t *testing.T) {
	catalog := challenge.Default()
	stateRepo := memory.NewProgressionRepository()
	sessionRepo := memory.NewSessionRepository()
	start := NewStartChallengeHandler(catalog, stateRepo, sessionRepo)
	submit := NewSubmitSessionHandler(catalog, stateRepo, sessionRepo, nil)
	ctx := context.Background()

	started, err := start.Handle(ctx, StartChallengeCommand{UserID: testUser, Domain: "loudness"})
	require.NoError(t, err)
	require.NotEmpty(t, started.SessionID)
	assert.False(t, started.Resumed)

	// Starting again resumes the same attempt.
	resumed, err := start.Handle(ctx, StartChallengeCommand{UserID: testUser, Domain: "loudness"})
	require.NoError(t, err)
	assert.True(t, resumed.Resumed)
	assert.Equal(t, started.SessionID, resumed.SessionID)

	// A failing submission amends the active record in place.
	quiet := make([]float64, 100) // 30 seconds of silence
	result, err := submit.Handle(ctx, SubmitSessionCommand{
		UserID:  testUser,
		Domain:  "loudness",
		Metrics: session.RawMetrics{RMSValues: quiet},
	})
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.True(t, result.Amended)
	assert.Equal(t, started.SessionID, result.SessionID)

	// A passing submission finalizes it: 100 samples all above 0.05 gives
	// 30 seconds and 100% above threshold.
	loud := make([]float64, 100)
	for i := range loud {
		loud[i] = 0.2
	}
	result, err = submit.Handle(ctx, SubmitSessionCommand{
		UserID:  testUser,
		Domain:  "loudness",
		Metrics: session.RawMetrics{RMSValues: loud},
	})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.True(t, result.Amended)
	assert.Equal(t, started.SessionID, result.SessionID)
	assert.InDelta(t, 30.0, result.SecondsAboveThreshold, 1e-9)
	assert.InDelta(t, 100.0, result.PercentAboveThreshold, 1e-9)

	// No active record remains after finalization.
	_, err = sessionRepo.FindActive(ctx, shared.UserID(testUser), challenge.DomainLoudness)
	assert.True(t, shared.IsNotFound(err))

	// Only one record exists for the whole exchange.
	count, err := sessionRepo.CountByUser(ctx, shared.UserID(testUser), challenge.DomainLoudness)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSubmitSession_PaceAlwaysRecords(t *testing.T) {
	handler, _, sessionRepo, _ := newSubmitFixture(t)

	result, err := handler.Handle(context.Background(), SubmitSessionCommand{
		UserID: testUser,
		Domain: "pace",
		Metrics: session.RawMetrics{
			FinalScore:      floatPtr(87),
			DurationSeconds: floatPtr(120),
			AverageWPM:      floatPtr(132),
		},
	})
	require.NoError(t, err)

	assert.True(t, result.Passed)
	assert.Equal(t, 87.0, result.Score)
	assert.Zero(t, result.LevelNumber)
	assert.False(t, result.LevelCompleted)

	count, err := sessionRepo.CountByUser(context.Background(), shared.UserID(testUser), challenge.DomainPace)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSubmitSession_ExplicitLevel(t *testing.T) {
	handler, stateRepo, _, _ := newSubmitFixture(t)
	ctx := context.Background()

	// Targeting a level ahead of the current one evaluates against its
	// thresholds but never advances past level 1.
	result, err := handler.Handle(ctx, SubmitSessionCommand{
		UserID:      testUser,
		Domain:      "filler_words",
		LevelNumber: 3,
		Metrics:     fillerMetrics(70, 4),
	})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 3, result.LevelNumber)
	assert.False(t, result.LevelCompleted)

	state, err := stateRepo.Find(ctx, shared.UserID(testUser), challenge.DomainFillerWords)
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentLevel)

	// Targeting the current level explicitly behaves like the derived path.
	result, err = handler.Handle(ctx, SubmitSessionCommand{
		UserID:      testUser,
		Domain:      "filler_words",
		LevelNumber: 1,
		Metrics:     fillerMetrics(75, 10),
	})
	require.NoError(t, err)
	assert.True(t, result.LevelCompleted)
	assert.Equal(t, 2, result.NextLevel)
}

func TestSubmitSession_ExplicitLevelNotInCatalog(t *testing.T) {
	handler, _, sessionRepo, _ := newSubmitFixture(t)

	_, err := handler.Handle(context.Background(), SubmitSessionCommand{
		UserID:      testUser,
		Domain:      "filler_words",
		LevelNumber: 42,
		Metrics:     fillerMetrics(70, 5),
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))

	count, err := sessionRepo.CountByUser(context.Background(), shared.UserID(testUser), challenge.DomainFillerWords)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSubmitSession_ExplicitLevelAlreadyPassed(t *testing.T) {
	handler, _, _, _ := newSubmitFixture(t)
	ctx := context.Background()

	// Complete level 1, then target it explicitly.
	result, err := handler.Handle(ctx, SubmitSessionCommand{
		UserID:  testUser,
		Domain:  "filler_words",
		Metrics: fillerMetrics(75, 10),
	})
	require.NoError(t, err)
	require.True(t, result.LevelCompleted)

	_, err = handler.Handle(ctx, SubmitSessionCommand{
		UserID:      testUser,
		Domain:      "filler_words",
		LevelNumber: 1,
		Metrics:     fillerMetrics(75, 10),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrLevelAlreadyPassed)
	assert.True(t, shared.IsConflict(err))
}

func TestSubmitSession_ConflictSurfaces(t *testing.T) {
	handler, stateRepo, sessionRepo, _ := newSubmitFixture(t)
	ctx := context.Background()

	// Seed a state, then make the stored version diverge from what the
	// handler will read by saving through a second loaded copy.
	seed := progression.NewState(shared.UserID(testUser), challenge.DomainFillerWords)
	require.NoError(t, stateRepo.Create(ctx, seed))

	conflicted := &conflictingProgressionRepo{ProgressionRepository: stateRepo}
	handler.stateRepo = conflicted

	_, err := handler.Handle(ctx, SubmitSessionCommand{
		UserID:  testUser,
		Domain:  "filler_words",
		Metrics: fillerMetrics(70, 5),
	})
	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))

	// The losing submission leaves no session record behind, so a retry
	// stores exactly one.
	count, err := sessionRepo.CountByUser(ctx, shared.UserID(testUser), challenge.DomainFillerWords)
	require.NoError(t, err)
	assert.Zero(t, count)
}

// conflictingProgressionRepo bumps the stored version between the handler's
// read and write, simulating a concurrent submission.
type conflictingProgressionRepo struct {
	*memory.ProgressionRepository
}

func (r *conflictingProgressionRepo) Find(ctx context.Context, userID shared.UserID, domain challenge.Domain) (*progression.State, error) {
	state, err := r.ProgressionRepository.Find(ctx, userID, domain)
	if err != nil {
		return nil, err
	}
	// A rival write lands after our read.
	rival, err := r.ProgressionRepository.Find(ctx, userID, domain)
	if err != nil {
		return nil, err
	}
	if err := r.ProgressionRepository.Save(ctx, rival); err != nil {
		return nil, err
	}
	return state, nil
}
