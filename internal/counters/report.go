package counters

import "maps"

// ActiveDays is the number of dates with any recorded activity.
func (a *Aggregate) ActiveDays() int {
	return len(a.DailyStats)
}

// AverageLevelsPerGame returns completed levels per started game, or zero
// before the first game.
func (a *Aggregate) AverageLevelsPerGame() float64 {
	if a.TotalGames == 0 {
		return 0
	}
	return float64(a.TotalLevelsCompleted) / float64(a.TotalGames)
}

// CompletionRate is the percentage of started games that ended in a CEO promotion.
func (a *Aggregate) CompletionRate() float64 {
	if a.TotalGames == 0 {
		return 0
	}
	return float64(a.TotalCEOPromotions) / float64(a.TotalGames) * 100
}

// Clone returns a deep copy.
func (a *Aggregate) Clone() *Aggregate {
	c := *a
	c.LevelStats = maps.Clone(a.LevelStats)
	c.LevelAttempts = maps.Clone(a.LevelAttempts)
	c.LevelAverageAttempts = maps.Clone(a.LevelAverageAttempts)
	c.DailyStats = maps.Clone(a.DailyStats)
	return &c
}
