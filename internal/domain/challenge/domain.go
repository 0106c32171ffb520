// Package challenge contains the practice domain enum and the challenge
// catalog: the static, per-domain ordered table of level definitions and
// pass thresholds. Catalog content is configuration data, not code.
package challenge

import (
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// Domain represents a practice discipline. Fixed, closed set.
type Domain string

const (
	// DomainLoudness - speaking loudly and steadily enough.
	DomainLoudness Domain = "loudness"
	// DomainFillerWords - reducing filler-word usage over time.
	DomainFillerWords Domain = "filler_words"
	// DomainPace - speaking rate and pause control.
	DomainPace Domain = "pace"
	// DomainEmotion - aligning facial emotion with spoken intent.
	DomainEmotion Domain = "emotion"
)

// AllDomains returns every practice domain in a stable order.
func AllDomains() []Domain {
	return []Domain{DomainLoudness, DomainFillerWords, DomainPace, DomainEmotion}
}

// IsValid checks that the domain is one of the closed set.
func (d Domain) IsValid() bool {
	switch d {
	case DomainLoudness, DomainFillerWords, DomainPace, DomainEmotion:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (d Domain) String() string {
	return string(d)
}

// ParseDomain parses a string into a Domain.
func ParseDomain(s string) (Domain, error) {
	d := Domain(s)
	if !d.IsValid() {
		return "", shared.ErrUnknownDomain
	}
	return d, nil
}

// EmotionLabel is one of the closed set of emotions the analysis service
// can detect. Per-emotion percentage breakdowns are keyed by this type so
// the data model stays checkable.
type EmotionLabel string

const (
	EmotionHappy      EmotionLabel = "happy"
	EmotionNeutral    EmotionLabel = "neutral"
	EmotionConfident  EmotionLabel = "confident"
	EmotionCalm       EmotionLabel = "calm"
	EmotionEmpathetic EmotionLabel = "empathetic"
	EmotionSerious    EmotionLabel = "serious"
	EmotionSad        EmotionLabel = "sad"
	EmotionAngry      EmotionLabel = "angry"
)

// IsValid checks that the label belongs to the closed emotion set.
func (e EmotionLabel) IsValid() bool {
	switch e {
	case EmotionHappy, EmotionNeutral, EmotionConfident, EmotionCalm,
		EmotionEmpathetic, EmotionSerious, EmotionSad, EmotionAngry:
		return true
	default:
		return false
	}
}
