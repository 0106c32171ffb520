// Package leaderboard ranks users by their passed sessions within one
// challenge domain. Aggregation is pure and deterministic so that the
// persistence and cache layers can recompute entries from session records at
// any time and arrive at identical output.
package leaderboard

import (
	"math"
	"sort"

	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

// DefaultLimit is the number of entries a leaderboard query returns when the
// caller does not ask for a specific size.
const DefaultLimit = 10

// Entry is one ranked row.
type Entry struct {
	Rank            int           `json:"rank"`
	UserID          shared.UserID `json:"userId"`
	BestScore       float64       `json:"bestScore"`
	AverageScore    float64       `json:"avgScore"`
	TotalActivities int           `json:"totalActivities"`
	TotalBadges     int           `json:"totalBadges"`
}

// TopN aggregates passed session records into ranked entries.
//
// Records are grouped per user; BestScore is the user's maximum score,
// AverageScore the rounded mean over their passed records. Entries sort by
// BestScore descending, then AverageScore descending; remaining ties keep the
// order in which users first appear in the input, so equal inputs always
// produce equal output. badgeCounts may be nil.
func TopN(records []*session.Record, badgeCounts map[shared.UserID]int, n int) []Entry {
	if n <= 0 {
		n = DefaultLimit
	}

	type accum struct {
		best  float64
		sum   float64
		count int
		order int
	}

	byUser := make(map[shared.UserID]*accum)
	var users []shared.UserID
	for _, rec := range records {
		if !rec.Passed {
			continue
		}
		a, ok := byUser[rec.UserID]
		if !ok {
			a = &accum{order: len(users)}
			byUser[rec.UserID] = a
			users = append(users, rec.UserID)
		}
		score := float64(rec.Score)
		if score > a.best {
			a.best = score
		}
		a.sum += score
		a.count++
	}

	entries := make([]Entry, 0, len(users))
	for _, id := range users {
		a := byUser[id]
		entries = append(entries, Entry{
			UserID:          id,
			BestScore:       a.best,
			AverageScore:    math.Round(a.sum / float64(a.count)),
			TotalActivities: a.count,
			TotalBadges:     badgeCounts[id],
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].BestScore != entries[j].BestScore {
			return entries[i].BestScore > entries[j].BestScore
		}
		if entries[i].AverageScore != entries[j].AverageScore {
			return entries[i].AverageScore > entries[j].AverageScore
		}
		return byUser[entries[i].UserID].order < byUser[entries[j].UserID].order
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// RankOf locates one user inside the full ranking. It returns the user's
// entry, the total number of ranked users, and whether the user is ranked at
// all (users without passed sessions are not).
func RankOf(records []*session.Record, badgeCounts map[shared.UserID]int, userID shared.UserID) (Entry, int, bool) {
	// One passed record per user minimum, so the full ranking never exceeds
	// len(records) entries.
	entries := TopN(records, badgeCounts, len(records)+1)
	for _, e := range entries {
		if e.UserID == userID {
			return e, len(entries), true
		}
	}
	return Entry{}, len(entries), false
}
