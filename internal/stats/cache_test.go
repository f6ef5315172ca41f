package stats

import (
	"testing"
	"time"

	"gamestats/internal/leaderboard"

	"github.com/stretchr/testify/assert"
)

func TestBoardCache_SkipsBoardLoadedBeforePurge(t *testing.T) {
	c := newBoardCache(4, time.Minute)
	stale := leaderboard.Board{Leaderboard: []leaderboard.Entry{{Rank: 1, PlayerName: "old"}}}

	gen := c.generation()
	c.purge()
	c.add(10, stale, gen)
	_, ok := c.get(10)
	assert.False(t, ok)

	c.add(10, stale, c.generation())
	b, ok := c.get(10)
	assert.True(t, ok)
	assert.Equal(t, "old", b.Leaderboard[0].PlayerName)
}

func TestBoardCache_NilIsDisabled(t *testing.T) {
	c := newBoardCache(0, time.Minute)
	c.add(10, leaderboard.Board{}, c.generation())
	c.purge()
	_, ok := c.get(10)
	assert.False(t, ok)
}
