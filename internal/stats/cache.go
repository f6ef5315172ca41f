package stats

import (
	"sync"
	"time"

	"gamestats/internal/leaderboard"
	"gamestats/internal/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// boardCache holds recently served leaderboards keyed by limit. Any
// leaderboard write purges it and bumps gen, so a board loaded before the
// write is never added after it.
type boardCache struct {
	lru *expirable.LRU[int, leaderboard.Board]

	mu  sync.Mutex
	gen uint64
}

func newBoardCache(size int, ttl time.Duration) *boardCache {
	if size <= 0 {
		return nil
	}
	return &boardCache{lru: expirable.NewLRU[int, leaderboard.Board](size, nil, ttl)}
}

func (c *boardCache) get(limit int) (leaderboard.Board, bool) {
	if c == nil {
		return leaderboard.Board{}, false
	}
	b, ok := c.lru.Get(limit)
	if ok {
		metrics.LeaderboardCache.WithLabelValues("hit").Inc()
	} else {
		metrics.LeaderboardCache.WithLabelValues("miss").Inc()
	}
	return b, ok
}

// generation is read before loading a board and handed back to add.
func (c *boardCache) generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *boardCache) add(limit int, b leaderboard.Board, gen uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen {
		c.lru.Add(limit, b)
	}
}

func (c *boardCache) purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.lru.Purge()
}
