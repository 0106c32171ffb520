package session

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	return NewEvaluator(challenge.Default())
}

func mustLevel(t *testing.T, d challenge.Domain, n int) challenge.Level {
	t.Helper()
	level, err := challenge.Default().Lookup(d, n)
	require.NoError(t, err)
	return level
}

func rmsSamples(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Loudness
// ─────────────────────────────────────────────────────────────────────────────

func TestEvaluateLoudness_Pass(t *testing.T) {
	e := newTestEvaluator(t)
	level := mustLevel(t, challenge.DomainLoudness, 1)

	// 100 samples at 0.3s each = 30 seconds, all above the 0.05 threshold.
	v, err := e.Evaluate(challenge.DomainLoudness, level, RawMetrics{
		RMSValues: rmsSamples(100, 0.2),
	})
	require.NoError(t, err)

	assert.True(t, v.Passed)
	assert.Equal(t, shared.Score(100), v.Score)
	assert.InDelta(t, 30.0, v.SecondsAboveThreshold, 1e-9)
	assert.InDelta(t, 100.0, v.PercentAboveThreshold, 1e-9)
	// Identical samples have zero variance.
	assert.InDelta(t, 1.0, v.Steadiness, 1e-9)
}

func TestEvaluateLoudness_FailTooQuiet(t *testing.T) {
	e := newTestEvaluator(t)
	level := mustLevel(t, challenge.DomainLoudness, 1)

	v, err := e.Evaluate(challenge.DomainLoudness, level, RawMetrics{
		RMSValues: rmsSamples(100, 0.01),
	})
	require.NoError(t, err)

	assert.False(t, v.Passed)
	assert.Equal(t, shared.Score(0), v.Score)
	assert.Zero(t, v.SecondsAboveThreshold)
	assert.Zero(t, v.PercentAboveThreshold)
}

func TestEvaluateLoudness_FailShortOfSeconds(t *testing.T) {
	e := newTestEvaluator(t)
	level := mustLevel(t, challenge.DomainLoudness, 1)

	// Half the samples loud enough: 15 seconds above, 50% above. The percent
	// criterion is met but 15s < 20s required.
	metrics := RawMetrics{
		RMSValues: append(rmsSamples(50, 0.2), rmsSamples(50, 0.01)...),
	}
	v, err := e.Evaluate(challenge.DomainLoudness, level, metrics)
	require.NoError(t, err)

	assert.False(t, v.Passed)
	assert.Equal(t, shared.Score(50), v.Score)
	assert.InDelta(t, 15.0, v.SecondsAboveThreshold, 1e-9)
	assert.InDelta(t, 50.0, v.PercentAboveThreshold, 1e-9)
}

func TestEvaluateLoudness_SteadinessFromSampleVariance(t *testing.T) {
	e := newTestEvaluator(t)
	level := mustLevel(t, challenge.DomainLoudness, 1)

	// Samples 0.1 and 0.3: mean 0.2, sample variance 0.02.
	v, err := e.Evaluate(challenge.DomainLoudness, level, RawMetrics{
		RMSValues: []float64{0.1, 0.3},
	})
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+0.02), v.Steadiness, 1e-9)
}

func TestEvaluateLoudness_SingleSampleKeepsPriorSteadiness(t *testing.T) {
	e := newTestEvaluator(t)
	level := mustLevel(t, challenge.DomainLoudness, 1)

	v, err := e.Evaluate(challenge.DomainLoudness, level, RawMetrics{
		RMSValues:       []float64{0.2},
		PriorSteadiness: 0.77,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.77, v.Steadiness, 1e-9)
}

func TestEvaluateLoudness_RejectsEmptyAndNonFinite(t *testing.T) {
	e := newTestEvaluator(t)
	level := mustLevel(t, challenge.DomainLoudness, 1)

	_, err := e.Evaluate(challenge.DomainLoudness, level, RawMetrics{})
	assert.ErrorIs(t, err, shared.ErrEmptyRMSSamples)
	assert.True(t, shared.IsInvalidMetrics(err))

	_, err = e.Evaluate(challenge.DomainLoudness, level, RawMetrics{
		RMSValues: []float64{0.2, math.NaN()},
	})
	assert.ErrorIs(t, err, shared.ErrNonFiniteMetric)
}

// ─────────────────────────────────────────────────────────────────────────────
// Filler words
// ─────────────────────────────────────────────────────────────────────────────

func TestEvaluateFiller_Pass(t *testing.T) {
	e := newTestEvaluator(t)
	level := mustLevel(t, challenge.DomainFillerWords, 1)

	// Level 1: at least 1 minute with at most 15 fillers.
	v, err := e.Evaluate(challenge.DomainFillerWords, level, RawMetrics{
		DurationSeconds: floatPtr(75),
		FillerCount:     intPtr(10),
	})
	require.NoError(t, err)
	assert.True(t, v.Passed)
	assert.Equal(t, shared.MaxScore, v.Score)
}

func TestEvaluateFiller_FailScoresProximity(t *testing.T) {
	e := newTestEvaluator(t)
	level := mustLevel(t, challenge.DomainFillerWords, 1)

	// Half the required duration, fillers within budget: score 50.
	v, err := e.Evaluate(challenge.DomainFillerWords, level, RawMetrics{
		DurationSeconds: floatPtr(30),
		FillerCount:     intPtr(10),
	})
	require.NoError(t, err)
	assert.False(t, v.Passed)
	assert.Equal(t, shared.Score(50), v.Score)

	// Long enough but double the filler budget: score 50 again.
	v, err = e.Evaluate(challenge.DomainFillerWords, level, RawMetrics{
		DurationSeconds: floatPtr(90),
		FillerCount:     intPtr(30),
	})
	require.NoError(t, err)
	assert.False(t, v.Passed)
	assert.Equal(t, shared.Score(50), v.Score)

	// Both short and over budget: the ratios compound.
	v, err = e.Evaluate(challenge.DomainFillerWords, level, RawMetrics{
		DurationSeconds: floatPtr(30),
		FillerCount:     intPtr(30),
	})
	require.NoError(t, err)
	assert.False(t, v.Passed)
	assert.Equal(t, shared.Score(25), v.Score)
}

func TestEvaluateFiller_RejectsMissingAndNegative(t *testing.T) {
	e := newTestEvaluator(t)
	level := mustLevel(t, challenge.DomainFillerWords, 1)

	_, err := e.Evaluate(challenge.DomainFillerWords, level, RawMetrics{
		DurationSeconds: floatPtr(75),
	})
	assert.ErrorIs(t, err, shared.ErrMissingMetrics)

	_, err = e.Evaluate(challenge.DomainFillerWords, level, RawMetrics{
		FillerCount: intPtr(10),
	})
	assert.ErrorIs(t, err, shared.ErrMissingMetrics)

	_, err = e.Evaluate(challenge.DomainFillerWords, level, RawMetrics{
		DurationSeconds: floatPtr(-1),
		FillerCount:     intPtr(10),
	})
	assert.ErrorIs(t, err, shared.ErrNonFiniteMetric)
}

// ─────────────────────────────────────────────────────────────────────────────
// Emotion
// ─────────────────────────────────────────────────────────────────────────────

func TestEvaluateEmotion_PassAndFailAgainstCatalogTarget(t *testing.T) {
	e := newTestEvaluator(t)
	level := mustLevel(t, challenge.DomainEmotion, 3) // target 80

	v, err := e.Evaluate(challenge.DomainEmotion, level, RawMetrics{
		AlignmentScore: floatPtr(85),
	})
	require.NoError(t, err)
	assert.True(t, v.Passed)
	assert.Equal(t, shared.Score(85), v.Score)

	v, err = e.Evaluate(challenge.DomainEmotion, level, RawMetrics{
		AlignmentScore: floatPtr(75),
	})
	require.NoError(t, err)
	assert.False(t, v.Passed)
	assert.Equal(t, shared.Score(75), v.Score)
}

func TestEvaluateEmotion_SessionTargetOverridesCatalog(t *testing.T) {
	e := newTestEvaluator(t)
	level := mustLevel(t, challenge.DomainEmotion, 3) // catalog target 80

	v, err := e.Evaluate(challenge.DomainEmotion, level, RawMetrics{
		AlignmentScore:  floatPtr(75),
		TargetAlignment: floatPtr(70),
	})
	require.NoError(t, err)
	assert.True(t, v.Passed)
}

func TestEvaluateEmotion_FinalScoreOverridesDisplayedScore(t *testing.T) {
	e := newTestEvaluator(t)
	level := mustLevel(t, challenge.DomainEmotion, 1)

	v, err := e.Evaluate(challenge.DomainEmotion, level, RawMetrics{
		AlignmentScore: floatPtr(72),
		FinalScore:     floatPtr(92),
	})
	require.NoError(t, err)
	// Pass/fail stays on alignment; only the reported score changes.
	assert.True(t, v.Passed)
	assert.Equal(t, shared.Score(92), v.Score)
}

func TestEvaluateEmotion_RejectsBadInput(t *testing.T) {
	e := newTestEvaluator(t)
	level := mustLevel(t, challenge.DomainEmotion, 1)

	_, err := e.Evaluate(challenge.DomainEmotion, level, RawMetrics{})
	assert.ErrorIs(t, err, shared.ErrMissingMetrics)

	_, err = e.Evaluate(challenge.DomainEmotion, level, RawMetrics{
		AlignmentScore: floatPtr(80),
		DetectedEmotions: map[challenge.EmotionLabel]float64{
			challenge.EmotionLabel("ecstatic"): 40,
		},
	})
	assert.ErrorIs(t, err, shared.ErrUnknownEmotion)

	_, err = e.Evaluate(challenge.DomainEmotion, level, RawMetrics{
		AlignmentScore: floatPtr(80),
		DetectedEmotions: map[challenge.EmotionLabel]float64{
			challenge.EmotionHappy: math.Inf(1),
		},
	})
	assert.ErrorIs(t, err, shared.ErrNonFiniteMetric)
}

// ─────────────────────────────────────────────────────────────────────────────
// Pace
// ─────────────────────────────────────────────────────────────────────────────

func TestEvaluatePace_ConsumesExternalScore(t *testing.T) {
	e := newTestEvaluator(t)

	v, err := e.Evaluate(challenge.DomainPace, challenge.Level{}, RawMetrics{
		FinalScore: floatPtr(87),
	})
	require.NoError(t, err)
	assert.True(t, v.Passed)
	assert.Equal(t, shared.Score(87), v.Score)

	// Out-of-range scores clamp instead of failing.
	v, err = e.Evaluate(challenge.DomainPace, challenge.Level{}, RawMetrics{
		FinalScore: floatPtr(150),
	})
	require.NoError(t, err)
	assert.Equal(t, shared.MaxScore, v.Score)
}

func TestEvaluatePace_RequiresFinalScore(t *testing.T) {
	e := newTestEvaluator(t)

	_, err := e.Evaluate(challenge.DomainPace, challenge.Level{}, RawMetrics{
		AverageWPM: floatPtr(130),
	})
	assert.ErrorIs(t, err, shared.ErrMissingMetrics)
}

func TestEvaluateUnknownDomain(t *testing.T) {
	e := newTestEvaluator(t)

	_, err := e.Evaluate(challenge.Domain("breathing"), challenge.Level{}, RawMetrics{})
	assert.ErrorIs(t, err, shared.ErrUnknownDomain)
}
