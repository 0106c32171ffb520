// Package timeutil provides UTC calendar-day helpers. Streaks and activity
// history count whole UTC days regardless of where the speaker practices, so
// every day computation goes through here.
// No external dependencies - uses only standard library.
package timeutil

import (
	"sort"
	"time"
)

// DayOf truncates a time to its UTC calendar day (midnight UTC).
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current UTC calendar day.
func Today() time.Time {
	return DayOf(time.Now())
}

// SameDay reports whether two times fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return DayOf(a).Equal(DayOf(b))
}

// NextDay returns the UTC day immediately after the given time's day.
func NextDay(t time.Time) time.Time {
	return DayOf(t).AddDate(0, 0, 1)
}

// PrevDay returns the UTC day immediately before the given time's day.
func PrevDay(t time.Time) time.Time {
	return DayOf(t).AddDate(0, 0, -1)
}

// UniqueDays collapses arbitrary timestamps into their distinct UTC days,
// ascending. Duplicates and unordered input are fine.
func UniqueDays(times []time.Time) []time.Time {
	if len(times) == 0 {
		return nil
	}

	seen := make(map[time.Time]struct{}, len(times))
	for _, t := range times {
		seen[DayOf(t)] = struct{}{}
	}

	days := make([]time.Time, 0, len(seen))
	for day := range seen {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// LongestRun returns the length of the longest streak of consecutive UTC
// days in the input. Duplicates and unordered input are fine.
func LongestRun(times []time.Time) int {
	days := UniqueDays(times)
	if len(days) == 0 {
		return 0
	}

	best, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Equal(days[i-1].AddDate(0, 0, 1)) {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 1
		}
	}
	return best
}
