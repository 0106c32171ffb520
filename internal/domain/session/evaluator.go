package session

import (
	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// RMSSampleSeconds is the fixed duration each RMS sample covers.
const RMSSampleSeconds = 0.3

// Verdict is the result of evaluating one session's metrics against a
// level's thresholds.
type Verdict struct {
	// Passed - whether the session meets the level's criteria.
	Passed bool

	// Score - normalized 0-100 score for the relevant metric.
	Score shared.Score

	// Loudness detail, populated only for the loudness domain.
	SecondsAboveThreshold float64
	PercentAboveThreshold float64
	Steadiness            float64
}

// Evaluator turns a domain's raw session metrics into a verdict using the
// challenge catalog thresholds. All methods are pure.
type Evaluator struct {
	catalog *challenge.Catalog
}

// NewEvaluator creates an evaluator backed by the given catalog.
func NewEvaluator(catalog *challenge.Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// Evaluate computes the verdict for one session. It never fails on
// well-formed numeric input; malformed input yields ErrInvalidMetrics kinds.
func (e *Evaluator) Evaluate(domain challenge.Domain, level challenge.Level, metrics RawMetrics) (Verdict, error) {
	switch domain {
	case challenge.DomainLoudness:
		return evaluateLoudness(level, metrics)
	case challenge.DomainFillerWords:
		return evaluateFiller(level, metrics)
	case challenge.DomainEmotion:
		return evaluateEmotion(level, metrics)
	case challenge.DomainPace:
		return evaluatePace(metrics)
	default:
		return Verdict{}, shared.ErrUnknownDomain
	}
}

func evaluateLoudness(level challenge.Level, m RawMetrics) (Verdict, error) {
	if level.Loudness == nil {
		return Verdict{}, shared.ErrLevelNotFound
	}
	if len(m.RMSValues) == 0 {
		return Verdict{}, shared.ErrEmptyRMSSamples
	}
	for _, v := range m.RMSValues {
		if !shared.IsFinite(v) {
			return Verdict{}, shared.ErrNonFiniteMetric
		}
	}

	t := level.Loudness
	above := 0
	for _, v := range m.RMSValues {
		if v >= t.RMSThreshold {
			above++
		}
	}

	seconds := float64(above) * RMSSampleSeconds
	percent := float64(above) / float64(len(m.RMSValues)) * 100

	steadiness := m.PriorSteadiness
	if n := len(m.RMSValues); n > 1 {
		mean := 0.0
		for _, v := range m.RMSValues {
			mean += v
		}
		mean /= float64(n)

		// Sample variance with Bessel's correction.
		variance := 0.0
		for _, v := range m.RMSValues {
			d := v - mean
			variance += d * d
		}
		variance /= float64(n - 1)

		steadiness = 1 / (1 + variance)
	}

	return Verdict{
		Passed:                seconds >= t.MinSecondsAbove && percent >= t.MinPercentAbove,
		Score:                 shared.ClampScore(percent),
		SecondsAboveThreshold: seconds,
		PercentAboveThreshold: percent,
		Steadiness:            steadiness,
	}, nil
}

func evaluateFiller(level challenge.Level, m RawMetrics) (Verdict, error) {
	if level.Filler == nil {
		return Verdict{}, shared.ErrLevelNotFound
	}
	if m.FillerCount == nil || !finitePtr(m.DurationSeconds) {
		return Verdict{}, shared.ErrMissingMetrics
	}
	if *m.FillerCount < 0 || *m.DurationSeconds < 0 {
		return Verdict{}, shared.ErrNonFiniteMetric
	}

	t := level.Filler
	required := float64(t.RequiredDurationMinutes) * 60
	passed := *m.DurationSeconds >= required && *m.FillerCount <= t.MaxFillers

	score := shared.MaxScore
	if !passed {
		// Informational score: how close the attempt came.
		durationRatio := 1.0
		if required > 0 && *m.DurationSeconds < required {
			durationRatio = *m.DurationSeconds / required
		}
		fillerRatio := 1.0
		if *m.FillerCount > t.MaxFillers {
			fillerRatio = float64(t.MaxFillers) / float64(*m.FillerCount)
		}
		score = shared.ClampScore(100 * durationRatio * fillerRatio)
	}

	return Verdict{Passed: passed, Score: score}, nil
}

func evaluateEmotion(level challenge.Level, m RawMetrics) (Verdict, error) {
	if level.Emotion == nil {
		return Verdict{}, shared.ErrLevelNotFound
	}
	if !finitePtr(m.AlignmentScore) {
		return Verdict{}, shared.ErrMissingMetrics
	}
	if err := m.ValidateEmotions(); err != nil {
		return Verdict{}, err
	}

	target := level.Emotion.TargetAlignmentPercent
	if finitePtr(m.TargetAlignment) {
		target = *m.TargetAlignment
	}

	score := *m.AlignmentScore
	if finitePtr(m.FinalScore) {
		score = *m.FinalScore
	}

	return Verdict{
		Passed: *m.AlignmentScore >= target,
		Score:  shared.ClampScore(score),
	}, nil
}

// evaluatePace consumes externally computed pace scores. Pace has no gating
// level structure: every well-formed session is recorded as completed and
// feeds badges and leaderboards only.
func evaluatePace(m RawMetrics) (Verdict, error) {
	if !finitePtr(m.FinalScore) {
		return Verdict{}, shared.ErrMissingMetrics
	}
	return Verdict{
		Passed: true,
		Score:  shared.ClampScore(*m.FinalScore),
	}, nil
}
