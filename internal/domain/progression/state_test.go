package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

const testUser = shared.UserID("2a7c9e4f-1b3d-4c5e-8f6a-7b8c9d0e1f2a")

func passedVerdict() session.Verdict {
	return session.Verdict{Passed: true, Score: 100}
}

func failedVerdict() session.Verdict {
	return session.Verdict{Passed: false, Score: 40}
}

func TestNewStateStartsAtLevelOne(t *testing.T) {
	state := NewState(testUser, challenge.DomainFillerWords)

	assert.Equal(t, 1, state.CurrentLevel)
	assert.Empty(t, state.CompletedLevels)
	assert.Empty(t, state.Badges)
	require.NoError(t, state.CheckInvariant())
}

func TestTrackerStart(t *testing.T) {
	tracker := NewTracker(challenge.Default())

	assignment, err := tracker.Start(NewState(testUser, challenge.DomainFillerWords))
	require.NoError(t, err)
	assert.Equal(t, 1, assignment.Level.Number)
	assert.False(t, assignment.Resumed)
	require.NotNil(t, assignment.Level.Filler)
}

func TestTrackerStartPaceHasNoLevels(t *testing.T) {
	tracker := NewTracker(challenge.Default())

	_, err := tracker.Start(NewState(testUser, challenge.DomainPace))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNoLevelsForDomain)
	assert.True(t, shared.IsNotFound(err))
}

func TestTrackerStartAfterAllComplete(t *testing.T) {
	tracker := NewTracker(challenge.Default())
	state := NewState(testUser, challenge.DomainLoudness)

	// Complete all three loudness levels.
	for i := 0; i < 3; i++ {
		outcome := tracker.RecordAttempt(state, state.CurrentLevel, passedVerdict())
		require.True(t, outcome.Advanced)
	}

	_, err := tracker.Start(state)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrAllLevelsComplete)
	assert.True(t, shared.IsAlreadyComplete(err))
}

func TestRecordAttemptPassAdvances(t *testing.T) {
	tracker := NewTracker(challenge.Default())
	state := NewState(testUser, challenge.DomainFillerWords)

	outcome := tracker.RecordAttempt(state, 1, passedVerdict())

	assert.True(t, outcome.Advanced)
	assert.False(t, outcome.AllComplete)
	assert.Equal(t, 2, outcome.NextLevel)
	assert.Equal(t, []int{1}, state.CompletedLevels)
	assert.Equal(t, 2, state.CurrentLevel)
	require.NoError(t, state.CheckInvariant())
}

func TestRecordAttemptFailLeavesState(t *testing.T) {
	tracker := NewTracker(challenge.Default())
	state := NewState(testUser, challenge.DomainFillerWords)

	outcome := tracker.RecordAttempt(state, 1, failedVerdict())

	assert.False(t, outcome.Advanced)
	assert.Equal(t, 1, outcome.NextLevel)
	assert.Empty(t, state.CompletedLevels)
	assert.Equal(t, 1, state.CurrentLevel)
}

func TestRecordAttemptRepassIsNoOp(t *testing.T) {
	tracker := NewTracker(challenge.Default())
	state := NewState(testUser, challenge.DomainFillerWords)

	first := tracker.RecordAttempt(state, 1, passedVerdict())
	require.True(t, first.Advanced)

	// Passing level 1 again after it is already completed changes nothing.
	again := tracker.RecordAttempt(state, 1, passedVerdict())
	assert.False(t, again.Advanced)
	assert.Equal(t, 2, again.NextLevel)
	assert.Equal(t, []int{1}, state.CompletedLevels)
	require.NoError(t, state.CheckInvariant())
}

func TestRecordAttemptSkippedLevelDoesNotAdvance(t *testing.T) {
	tracker := NewTracker(challenge.Default())
	state := NewState(testUser, challenge.DomainFillerWords)

	// A pass reported for level 3 while the user is on level 1 must not
	// punch a hole in the completed prefix.
	outcome := tracker.RecordAttempt(state, 3, passedVerdict())
	assert.False(t, outcome.Advanced)
	assert.Equal(t, 1, state.CurrentLevel)
	require.NoError(t, state.CheckInvariant())
}

func TestRecordAttemptAllComplete(t *testing.T) {
	tracker := NewTracker(challenge.Default())
	state := NewState(testUser, challenge.DomainLoudness)

	var outcome Outcome
	for i := 0; i < 3; i++ {
		outcome = tracker.RecordAttempt(state, state.CurrentLevel, passedVerdict())
	}

	assert.True(t, outcome.Advanced)
	assert.True(t, outcome.AllComplete)
	assert.Equal(t, 4, outcome.NextLevel)
	assert.Equal(t, []int{1, 2, 3}, state.CompletedLevels)
	assert.True(t, state.AllComplete(3))
}

func TestAddBadgesIsIdempotent(t *testing.T) {
	state := NewState(testUser, challenge.DomainFillerWords)

	added := state.AddBadges([]string{"first_activity", "level_1_complete"})
	assert.Equal(t, []string{"first_activity", "level_1_complete"}, added)

	added = state.AddBadges([]string{"first_activity", "streak_5"})
	assert.Equal(t, []string{"streak_5"}, added)
	assert.Equal(t, []string{"first_activity", "level_1_complete", "streak_5"}, state.Badges)

	assert.True(t, state.HasBadge("streak_5"))
	assert.False(t, state.HasBadge("streak_10"))
}

func TestCheckInvariantRejectsCorruptRows(t *testing.T) {
	state := NewState(testUser, challenge.DomainFillerWords)

	state.CompletedLevels = []int{1, 3}
	state.CurrentLevel = 3
	assert.Error(t, state.CheckInvariant())

	state.CompletedLevels = []int{1, 2}
	state.CurrentLevel = 5
	assert.Error(t, state.CheckInvariant())

	state.CompletedLevels = []int{2, 1}
	state.CurrentLevel = 3
	// Order does not matter, only the set does.
	assert.NoError(t, state.CheckInvariant())
}
