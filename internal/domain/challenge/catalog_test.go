package challenge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Speak-Craft/backend/internal/domain/shared"
)

func TestDefaultCatalogShape(t *testing.T) {
	c := Default()

	assert.Equal(t, 10, c.MaxLevel(DomainFillerWords))
	assert.Equal(t, 3, c.MaxLevel(DomainLoudness))
	assert.Equal(t, 5, c.MaxLevel(DomainEmotion))
	assert.Equal(t, 0, c.MaxLevel(DomainPace))

	assert.True(t, c.HasLevels(DomainFillerWords))
	assert.False(t, c.HasLevels(DomainPace))
}

func TestDefaultCatalogPolicies(t *testing.T) {
	c := Default()

	loudness := c.Policy(DomainLoudness)
	assert.True(t, loudness.SingleAttempt)
	assert.True(t, loudness.AmendableSessions)

	filler := c.Policy(DomainFillerWords)
	assert.False(t, filler.SingleAttempt)
	assert.False(t, filler.AmendableSessions)
}

func TestLookupSpotValues(t *testing.T) {
	c := Default()

	f1, err := c.Lookup(DomainFillerWords, 1)
	require.NoError(t, err)
	require.NotNil(t, f1.Filler)
	assert.Equal(t, 1, f1.Filler.RequiredDurationMinutes)
	assert.Equal(t, 15, f1.Filler.MaxFillers)

	f10, err := c.Lookup(DomainFillerWords, 10)
	require.NoError(t, err)
	require.NotNil(t, f10.Filler)
	assert.Equal(t, 5, f10.Filler.RequiredDurationMinutes)
	assert.Equal(t, 5, f10.Filler.MaxFillers)

	l2, err := c.Lookup(DomainLoudness, 2)
	require.NoError(t, err)
	require.NotNil(t, l2.Loudness)
	assert.InDelta(t, 0.10, l2.Loudness.RMSThreshold, 1e-9)
	assert.InDelta(t, 20, l2.Loudness.MinSecondsAbove, 1e-9)
	assert.InDelta(t, 20, l2.Loudness.MinPercentAbove, 1e-9)

	e5, err := c.Lookup(DomainEmotion, 5)
	require.NoError(t, err)
	require.NotNil(t, e5.Emotion)
	assert.InDelta(t, 90, e5.Emotion.TargetAlignmentPercent, 1e-9)
}

func TestLookupOutOfRange(t *testing.T) {
	c := Default()

	_, err := c.Lookup(DomainFillerWords, 0)
	assert.ErrorIs(t, err, shared.ErrLevelNotFound)

	_, err = c.Lookup(DomainFillerWords, 11)
	assert.ErrorIs(t, err, shared.ErrLevelNotFound)

	// Pace has no levels at all.
	_, err = c.Lookup(DomainPace, 1)
	assert.ErrorIs(t, err, shared.ErrLevelNotFound)

	_, err = c.Lookup(Domain("breathing"), 1)
	assert.ErrorIs(t, err, shared.ErrUnknownDomain)
}

func TestLevelsForAreOrdered(t *testing.T) {
	c := Default()

	levels, err := c.LevelsFor(DomainEmotion)
	require.NoError(t, err)
	require.Len(t, levels, 5)
	for i, lvl := range levels {
		assert.Equal(t, i+1, lvl.Number)
		assert.Equal(t, DomainEmotion, lvl.Domain)
	}

	_, err = c.LevelsFor(Domain("breathing"))
	assert.ErrorIs(t, err, shared.ErrUnknownDomain)
}

func TestParseDomain(t *testing.T) {
	d, err := ParseDomain("filler_words")
	require.NoError(t, err)
	assert.Equal(t, DomainFillerWords, d)

	_, err = ParseDomain("breathing")
	assert.ErrorIs(t, err, shared.ErrUnknownDomain)

	_, err = ParseDomain("")
	assert.ErrorIs(t, err, shared.ErrUnknownDomain)
}

func TestParseRejectsNonContiguousLevels(t *testing.T) {
	_, err := parse([]byte(`
domains:
  emotion:
    levels:
      - { level: 1, target_alignment: 70 }
      - { level: 3, target_alignment: 80 }
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestParseRejectsPaceLevels(t *testing.T) {
	_, err := parse([]byte(`
domains:
  pace:
    levels:
      - { level: 1, target_alignment: 70 }
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestParseRejectsUnknownDomain(t *testing.T) {
	_, err := parse([]byte(`
domains:
  breathing:
    levels: []
`))
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "challenge", domainErr.Domain)
}

func TestParseFillsMissingDomains(t *testing.T) {
	c, err := parse([]byte(`
domains:
  loudness:
    single_attempt: true
    levels:
      - { level: 1, rms_threshold: 0.05, min_seconds_above: 20, min_percent_above: 20 }
`))
	require.NoError(t, err)

	// Every domain is addressable even when absent from the file.
	for _, d := range AllDomains() {
		_, lookupErr := c.LevelsFor(d)
		assert.NoError(t, lookupErr)
	}
	assert.Equal(t, 0, c.MaxLevel(DomainFillerWords))
	assert.False(t, c.Policy(DomainFillerWords).SingleAttempt)
}

func TestLoadFileMissingPath(t *testing.T) {
	_, err := LoadFile("testdata/does-not-exist.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
