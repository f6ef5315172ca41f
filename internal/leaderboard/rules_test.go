package leaderboard

import (
	"testing"
	"time"

	"gamestats/internal/counters"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func TestApply_OverwritesLevelAndRecomputesTotal(t *testing.T) {
	rec, err := Apply(nil, Progress("s1", 1, 2, false), t0)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 2}, rec.LevelDeaths)
	assert.Equal(t, 2, rec.TotalDeaths)
	assert.Equal(t, t0, rec.CreatedAt)

	rec, err = Apply(&rec, Progress("s1", 1, 2, false), t0.Add(time.Minute))
	require.NoError(t, err)
	rec, err = Apply(&rec, Progress("s1", 2, 5, false), t0.Add(2*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, map[int]int{1: 2, 2: 5}, rec.LevelDeaths)
	assert.Equal(t, 7, rec.TotalDeaths)
	assert.Equal(t, t0, rec.CreatedAt)
	assert.Equal(t, t0.Add(2*time.Minute), rec.UpdatedAt)
}

func TestApply_DoesNotMutateExisting(t *testing.T) {
	existing := Record{SessionID: "s1", LevelDeaths: map[int]int{1: 1}, TotalDeaths: 1}
	_, err := Apply(&existing, Progress("s1", 1, 4, false), t0)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 1}, existing.LevelDeaths)
}

func TestApply_RejectsInvalidInput(t *testing.T) {
	_, err := Apply(nil, Progress("s1", 11, 1, false), t0)
	assert.ErrorIs(t, err, counters.ErrUnknownLevel)

	_, err = Apply(nil, Progress("s1", 1, -1, false), t0)
	assert.ErrorIs(t, err, ErrNegativeDeaths)

	_, err = Apply(nil, Completion("s1", "ann", 3, map[int]int{0: 3}, t0), t0)
	assert.ErrorIs(t, err, counters.ErrUnknownLevel)
}

func TestApply_CompletionFreezesDeaths(t *testing.T) {
	rec, err := Apply(nil, Progress("s1", 3, 4, true), t0)
	require.NoError(t, err)
	require.True(t, rec.Completed)
	assert.Equal(t, t0, rec.CompletedAt)

	later := t0.Add(time.Hour)
	rec, err = Apply(&rec, Progress("s1", 3, 0, true), later)
	require.NoError(t, err)
	assert.Equal(t, 4, rec.TotalDeaths)
	assert.Equal(t, map[int]int{3: 4}, rec.LevelDeaths)
	assert.Equal(t, t0, rec.CompletedAt, "completedAt is stamped once")
}

func TestApply_CompletedRecordOnlyAcceptsNameAndHigherTotals(t *testing.T) {
	rec, err := Apply(nil, Completion("s1", "ann", 0, map[int]int{1: 2, 2: 3}, t0), t0)
	require.NoError(t, err)
	require.Equal(t, 5, rec.TotalDeaths)

	rec, err = Apply(&rec, Completion("s1", "anna", 1, map[int]int{1: 1}, t0.Add(time.Hour)), t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "anna", rec.PlayerName)
	assert.Equal(t, 5, rec.TotalDeaths, "downgrade is ignored")
	assert.Equal(t, map[int]int{1: 2, 2: 3}, rec.LevelDeaths)
	assert.Equal(t, t0, rec.CompletedAt)

	rec, err = Apply(&rec, Completion("s1", "", 0, map[int]int{1: 4, 2: 3}, t0), t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "anna", rec.PlayerName)
	assert.Equal(t, 7, rec.TotalDeaths)
}

func TestApply_CompletionWithoutLevelsUsesReportedTotal(t *testing.T) {
	finished := t0.Add(-5 * time.Minute)
	rec, err := Apply(nil, Completion("s1", "bo", 9, nil, finished), t0)
	require.NoError(t, err)
	assert.Equal(t, 9, rec.TotalDeaths)
	assert.Empty(t, rec.LevelDeaths)
	assert.Equal(t, finished, rec.CompletedAt)
}

func TestRank_OrdersByDeathsThenCompletion(t *testing.T) {
	t1 := t0
	t2 := t0.Add(time.Minute)
	records := []Record{
		{SessionID: "a", PlayerName: "five", TotalDeaths: 5, Completed: true, CompletedAt: t1},
		{SessionID: "b", PlayerName: "three-late", TotalDeaths: 3, Completed: true, CompletedAt: t2},
		{SessionID: "c", PlayerName: "three-early", TotalDeaths: 3, Completed: true, CompletedAt: t1},
		{SessionID: "d", PlayerName: "eight", TotalDeaths: 8, Completed: true, CompletedAt: t1},
		{SessionID: "e", PlayerName: "unfinished", TotalDeaths: 0},
		{SessionID: "f", TotalDeaths: 0, Completed: true, CompletedAt: t1},
	}

	entries := Rank(records, 10)
	require.Len(t, entries, 4)
	var names []string
	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
		names = append(names, e.PlayerName)
	}
	assert.Equal(t, []string{"three-early", "three-late", "five", "eight"}, names)

	assert.Len(t, Rank(records, 2), 2)
}

func TestRank_CompletionMinutes(t *testing.T) {
	records := []Record{
		{SessionID: "a", PlayerName: "a", Completed: true, CreatedAt: t0, CompletedAt: t0.Add(14*time.Minute + 40*time.Second)},
		{SessionID: "b", PlayerName: "b", Completed: true, CreatedAt: t0, CompletedAt: t0.Add(-time.Minute)},
	}
	entries := Rank(records, 10)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[1].CompletionTimeMinutes)
	assert.Equal(t, 15, *entries[1].CompletionTimeMinutes)
	assert.Nil(t, entries[0].CompletionTimeMinutes)
}

func TestSummarize_OmitsLevelsWithoutData(t *testing.T) {
	records := []Record{
		{Completed: true, LevelDeaths: map[int]int{1: 1, 2: 4}},
		{Completed: true, LevelDeaths: map[int]int{1: 2}},
		{Completed: false, LevelDeaths: map[int]int{1: 100, 3: 9}},
	}
	got := Summarize(records)
	assert.Equal(t, map[int]LevelDeathStat{
		1: {AverageDeaths: 1.5, PlayerCount: 2},
		2: {AverageDeaths: 4, PlayerCount: 1},
	}, got)
}
