// Package badge awards achievement badges from session outcomes. The engine
// is a pure rules table: it inspects one submitted session plus a little
// history context and returns the badge identifiers earned by it. Awarding is
// idempotent because callers union the result into the progression state.
package badge

import (
	"fmt"
	"time"

	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/pkg/timeutil"
)

// Badge identifiers. Level-completion badges are generated per level and do
// not appear here.
const (
	FirstActivity   = "first_activity"
	PerfectMatch    = "perfect_match"
	ConsistencyPro  = "consistency_pro"
	AlignmentExpert = "alignment_expert"
	HighScorer      = "high_scorer"
	Streak5         = "streak_5"
	Streak10        = "streak_10"
)

// Alignment and score thresholds for the emotion achievement tiers.
const (
	perfectMatchAlignment    = 95
	consistencyProThreshold  = 90
	alignmentExpertThreshold = 85
	highScorerThreshold      = 90
)

// LevelComplete returns the identifier of the badge awarded for finishing a
// numbered level, e.g. "level_3_complete".
func LevelComplete(level int) string {
	return fmt.Sprintf("level_%d_complete", level)
}

// Input is everything a single badge evaluation looks at. All history-derived
// fields are computed by the caller before the evaluation so the engine
// itself stays free of I/O.
type Input struct {
	Metrics session.RawMetrics

	// ActivityOrdinal is the 1-based position of this session among the
	// user's sessions in the domain, counting the session being submitted.
	ActivityOrdinal int

	// CompletedLevel is the level number this session completed, or zero
	// when the session did not advance the progression.
	CompletedLevel int

	// ActiveDays lists the distinct UTC days with at least one session in
	// the domain, ascending, including today's submission.
	ActiveDays []time.Time
}

// Rule names one badge condition. Earned must be pure.
type Rule struct {
	Name   string
	Earned func(in Input) (string, bool)
}

// Engine evaluates the badge rules table.
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine with the standard rules table.
func NewEngine() *Engine {
	return &Engine{rules: standardRules()}
}

// Evaluate returns the badge identifiers earned by this session, in rule
// order, excluding badges the user already holds. The same input against the
// same holdings always yields the same result.
func (e *Engine) Evaluate(held []string, in Input) []string {
	owned := make(map[string]struct{}, len(held))
	for _, b := range held {
		owned[b] = struct{}{}
	}

	var earned []string
	for _, rule := range e.rules {
		id, ok := rule.Earned(in)
		if !ok {
			continue
		}
		if _, has := owned[id]; has {
			continue
		}
		owned[id] = struct{}{}
		earned = append(earned, id)
	}
	return earned
}

func standardRules() []Rule {
	return []Rule{
		{
			Name: "first activity",
			Earned: func(in Input) (string, bool) {
				return FirstActivity, in.ActivityOrdinal == 1
			},
		},
		{
			Name: "level completion",
			Earned: func(in Input) (string, bool) {
				if in.CompletedLevel <= 0 {
					return "", false
				}
				return LevelComplete(in.CompletedLevel), true
			},
		},
		{
			Name: "perfect match",
			Earned: func(in Input) (string, bool) {
				return PerfectMatch, atLeast(in.Metrics.AlignmentScore, perfectMatchAlignment)
			},
		},
		{
			Name: "consistency pro",
			Earned: func(in Input) (string, bool) {
				return ConsistencyPro, atLeast(in.Metrics.ConsistencyScore, consistencyProThreshold)
			},
		},
		{
			Name: "alignment expert",
			Earned: func(in Input) (string, bool) {
				return AlignmentExpert, atLeast(in.Metrics.AlignmentScore, alignmentExpertThreshold)
			},
		},
		{
			Name: "high scorer",
			Earned: func(in Input) (string, bool) {
				return HighScorer, atLeast(in.Metrics.FinalScore, highScorerThreshold)
			},
		},
		{
			Name: "five day streak",
			Earned: func(in Input) (string, bool) {
				return Streak5, timeutil.LongestRun(in.ActiveDays) >= 5
			},
		},
		{
			Name: "ten day streak",
			Earned: func(in Input) (string, bool) {
				return Streak10, timeutil.LongestRun(in.ActiveDays) >= 10
			},
		},
	}
}

func atLeast(v *float64, threshold float64) bool {
	return v != nil && *v >= threshold
}
