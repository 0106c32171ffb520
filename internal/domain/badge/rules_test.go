package badge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Speak-Craft/backend/internal/domain/session"
)

func f(v float64) *float64 { return &v }

func day(yyyy int, mm time.Month, dd int) time.Time {
	return time.Date(yyyy, mm, dd, 12, 30, 0, 0, time.UTC)
}

func TestEvaluate_FirstActivity(t *testing.T) {
	engine := NewEngine()

	earned := engine.Evaluate(nil, Input{ActivityOrdinal: 1})
	assert.Equal(t, []string{FirstActivity}, earned)

	earned = engine.Evaluate(nil, Input{ActivityOrdinal: 2})
	assert.Empty(t, earned)
}

func TestEvaluate_LevelCompletion(t *testing.T) {
	engine := NewEngine()

	earned := engine.Evaluate(nil, Input{ActivityOrdinal: 3, CompletedLevel: 4})
	assert.Equal(t, []string{"level_4_complete"}, earned)
}

func TestEvaluate_EmotionTiers(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name      string
		alignment float64
		want      []string
	}{
		{"below expert", 80, nil},
		{"expert only", 85, []string{AlignmentExpert}},
		{"expert up to 94", 94.9, []string{AlignmentExpert}},
		{"perfect match includes expert", 95, []string{PerfectMatch, AlignmentExpert}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{
				ActivityOrdinal: 2,
				Metrics:         session.RawMetrics{AlignmentScore: f(tt.alignment)},
			}
			assert.Equal(t, tt.want, engine.Evaluate(nil, in))
		})
	}
}

func TestEvaluate_ConsistencyAndHighScorer(t *testing.T) {
	engine := NewEngine()

	in := Input{
		ActivityOrdinal: 5,
		Metrics: session.RawMetrics{
			ConsistencyScore: f(92),
			FinalScore:       f(91),
		},
	}
	assert.Equal(t, []string{ConsistencyPro, HighScorer}, engine.Evaluate(nil, in))
}

func TestEvaluate_SkipsHeldBadges(t *testing.T) {
	engine := NewEngine()

	in := Input{
		ActivityOrdinal: 1,
		CompletedLevel:  1,
		Metrics:         session.RawMetrics{AlignmentScore: f(96)},
	}

	first := engine.Evaluate(nil, in)
	assert.Equal(t, []string{FirstActivity, "level_1_complete", PerfectMatch, AlignmentExpert}, first)

	// Same input against the already-awarded set earns nothing new.
	assert.Empty(t, engine.Evaluate(first, in))
}

func TestEvaluate_Streaks(t *testing.T) {
	engine := NewEngine()

	days := []time.Time{
		day(2026, time.March, 1),
		day(2026, time.March, 2),
		day(2026, time.March, 3),
		day(2026, time.March, 4),
		day(2026, time.March, 5),
	}
	earned := engine.Evaluate(nil, Input{ActivityOrdinal: 5, ActiveDays: days})
	assert.Equal(t, []string{Streak5}, earned)

	// A gap resets the run.
	gapped := append(days[:4:4], day(2026, time.March, 6))
	assert.Empty(t, engine.Evaluate(nil, Input{ActivityOrdinal: 5, ActiveDays: gapped}))

	for d := 6; d <= 10; d++ {
		days = append(days, day(2026, time.March, d))
	}
	earned = engine.Evaluate([]string{Streak5}, Input{ActivityOrdinal: 10, ActiveDays: days})
	assert.Equal(t, []string{Streak10}, earned)
}
