package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Speak-Craft/backend/internal/domain/challenge"
	"github.com/Speak-Craft/backend/internal/domain/session"
	"github.com/Speak-Craft/backend/internal/domain/shared"
)

const (
	alice = shared.UserID("3b8f4a2e-1c6d-4e9a-8f21-0d5b7c3a9e11")
	bob   = shared.UserID("7d2e9f10-5a4b-4c8d-9e3f-1b6a8c0d2f45")
	carol = shared.UserID("a1c3e5f7-2b4d-4f6a-8c0e-9d1f3b5a7c90")
)

func passed(user shared.UserID, score float64) *session.Record {
	return &session.Record{
		UserID: user,
		Domain: challenge.DomainFillerWords,
		Score:  shared.Score(score),
		Passed: true,
	}
}

func TestTopN_GroupsAndRanks(t *testing.T) {
	records := []*session.Record{
		passed(alice, 70),
		passed(bob, 95),
		passed(alice, 90),
		passed(bob, 60),
		{UserID: carol, Score: 100, Passed: false},
	}
	badges := map[shared.UserID]int{alice: 3, bob: 1}

	entries := TopN(records, badges, 10)

	assert.Len(t, entries, 2, "failed attempts must not create entries")

	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, bob, entries[0].UserID)
	assert.Equal(t, 95.0, entries[0].BestScore)
	assert.Equal(t, 78.0, entries[0].AverageScore)
	assert.Equal(t, 2, entries[0].TotalActivities)
	assert.Equal(t, 1, entries[0].TotalBadges)

	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, alice, entries[1].UserID)
	assert.Equal(t, 90.0, entries[1].BestScore)
	assert.Equal(t, 80.0, entries[1].AverageScore)
	assert.Equal(t, 3, entries[1].TotalBadges)
}

func TestTopN_TieBreakers(t *testing.T) {
	// Same best score: higher average wins.
	records := []*session.Record{
		passed(alice, 90),
		passed(alice, 50),
		passed(bob, 90),
		passed(bob, 80),
	}
	entries := TopN(records, nil, 10)
	assert.Equal(t, bob, entries[0].UserID)
	assert.Equal(t, alice, entries[1].UserID)

	// Fully tied: first appearance in the input wins.
	records = []*session.Record{
		passed(carol, 85),
		passed(alice, 85),
	}
	entries = TopN(records, nil, 10)
	assert.Equal(t, carol, entries[0].UserID)
	assert.Equal(t, alice, entries[1].UserID)
}

func TestTopN_LimitAndDefault(t *testing.T) {
	var records []*session.Record
	ids := []shared.UserID{alice, bob, carol}
	for i := 0; i < 12; i++ {
		records = append(records, passed(ids[i%3], float64(50+i)))
	}

	entries := TopN(records, nil, 2)
	assert.Len(t, entries, 2)

	entries = TopN(records, nil, 0)
	assert.LessOrEqual(t, len(entries), DefaultLimit)
	assert.Len(t, entries, 3)
}

func TestTopN_Deterministic(t *testing.T) {
	records := []*session.Record{
		passed(alice, 88),
		passed(bob, 88),
		passed(carol, 88),
		passed(alice, 70),
	}

	first := TopN(records, nil, 10)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, TopN(records, nil, 10))
	}
}

func TestTopN_Empty(t *testing.T) {
	assert.Empty(t, TopN(nil, nil, 10))
}

func TestRankOf(t *testing.T) {
	records := []*session.Record{
		passed(alice, 70),
		passed(bob, 95),
		passed(carol, 80),
	}

	entry, total, ranked := RankOf(records, map[shared.UserID]int{alice: 2}, alice)
	assert.True(t, ranked)
	assert.Equal(t, 3, total)
	assert.Equal(t, 3, entry.Rank)
	assert.Equal(t, 70.0, entry.BestScore)
	assert.Equal(t, 2, entry.TotalBadges)

	entry, total, ranked = RankOf(records, nil, bob)
	assert.True(t, ranked)
	assert.Equal(t, 1, entry.Rank)
	assert.Equal(t, 3, total)
}

func TestRankOf_UnrankedUser(t *testing.T) {
	records := []*session.Record{
		passed(alice, 70),
		{UserID: bob, Score: 99, Passed: false},
	}

	// A user with only failed sessions holds no rank.
	_, total, ranked := RankOf(records, nil, bob)
	assert.False(t, ranked)
	assert.Equal(t, 1, total)

	_, total, ranked = RankOf(nil, nil, alice)
	assert.False(t, ranked)
	assert.Zero(t, total)
}
