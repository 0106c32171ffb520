// Package session contains the practice-session model: raw metrics supplied
// by the external analysis services, the pure metric evaluator that turns
// them into verdicts, and the immutable session record.
package session

import (
	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// RawMetrics carries the already-computed numeric features of one practice
// session. Audio/video feature extraction happens outside the engine; the
// engine only validates and evaluates these numbers.
//
// Optional fields are pointers so "absent" is distinguishable from zero.
type RawMetrics struct {
	// Loudness: RMS samples at a fixed 0.3s cadence.
	RMSValues []float64 `json:"rmsValues,omitempty"`

	// PriorSteadiness carries the previous steadiness value; it is kept
	// unchanged when the sample count is too small for a variance.
	PriorSteadiness float64 `json:"priorSteadiness,omitempty"`

	// Filler words.
	FillerCount     *int     `json:"fillerCount,omitempty"`
	DurationSeconds *float64 `json:"duration,omitempty"`
	TotalChunks     int      `json:"totalChunks,omitempty"`

	// Emotion alignment (all 0-100).
	AlignmentScore   *float64 `json:"alignmentScore,omitempty"`
	EngagementScore  *float64 `json:"engagementScore,omitempty"`
	ConsistencyScore *float64 `json:"consistencyScore,omitempty"`
	FinalScore       *float64 `json:"finalScore,omitempty"`

	// TargetAlignment overrides the catalog default when supplied.
	TargetAlignment *float64 `json:"targetAlignment,omitempty"`

	// DetectedEmotions maps each label of the closed emotion set to a
	// percentage of session time.
	DetectedEmotions map[challenge.EmotionLabel]float64 `json:"detectedEmotions,omitempty"`

	MismatchCount      int     `json:"mismatchCount,omitempty"`
	EmotionSwitches    int     `json:"emotionSwitches,omitempty"`
	FaceVisibleSeconds float64 `json:"faceVisibleSeconds,omitempty"`
	FaceAwaySeconds    float64 `json:"faceAwaySeconds,omitempty"`

	// Pace: consumed as computed, no pass/fail formula of our own.
	AverageWPM *float64 `json:"averageWPM,omitempty"`
	PauseRatio *float64 `json:"pauseRatio,omitempty"`
	WPMStd     *float64 `json:"wpmStd,omitempty"`
}

// ValidateEmotions rejects labels outside the closed emotion set and
// non-finite percentages.
func (m RawMetrics) ValidateEmotions() error {
	for label, pct := range m.DetectedEmotions {
		if !label.IsValid() {
			return shared.ErrUnknownEmotion
		}
		if !shared.IsFinite(pct) {
			return shared.ErrNonFiniteMetric
		}
	}
	return nil
}

// finitePtr reports whether an optional metric is present and usable.
func finitePtr(v *float64) bool {
	return v != nil && shared.IsFinite(*v)
}
