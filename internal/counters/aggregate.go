package counters

import (
	"errors"
	"math"
)

var ErrUnknownLevel = errors.New("unknown level")

// ValidLevel reports whether level belongs to the fixed level set.
func ValidLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}

// Default returns the zero state with every level key present.
func Default() *Aggregate {
	a := &Aggregate{}
	a.Normalize()
	return a
}

// Normalize repairs an aggregate decoded from untrusted storage: maps are
// allocated, level keys outside the fixed set are dropped, missing levels are
// zero-filled and negative counts are clamped.
func (a *Aggregate) Normalize() {
	if a.LevelStats == nil {
		a.LevelStats = make(map[int]int, MaxLevel)
	}
	if a.LevelAttempts == nil {
		a.LevelAttempts = make(map[int]int, MaxLevel)
	}
	if a.LevelAverageAttempts == nil {
		a.LevelAverageAttempts = make(map[int]float64)
	}
	if a.DailyStats == nil {
		a.DailyStats = make(map[string]Daily)
	}

	for _, m := range []map[int]int{a.LevelStats, a.LevelAttempts} {
		for level, n := range m {
			if !ValidLevel(level) {
				delete(m, level)
			} else if n < 0 {
				m[level] = 0
			}
		}
		for level := MinLevel; level <= MaxLevel; level++ {
			if _, ok := m[level]; !ok {
				m[level] = 0
			}
		}
	}
	for level, avg := range a.LevelAverageAttempts {
		if !ValidLevel(level) || avg < 0 {
			delete(a.LevelAverageAttempts, level)
		}
	}

	a.TotalPlayers = max(a.TotalPlayers, 0)
	a.TotalGames = max(a.TotalGames, 0)
	a.TotalLevelsCompleted = max(a.TotalLevelsCompleted, 0)
	a.TotalKeysCollected = max(a.TotalKeysCollected, 0)
	a.TotalCEOPromotions = max(a.TotalCEOPromotions, 0)
}

// RecordLevelAttempt counts one attempt at level. Unknown levels are ignored.
func (a *Aggregate) RecordLevelAttempt(level int) {
	if !ValidLevel(level) {
		return
	}
	a.LevelAttempts[level]++
}

// RecordLevelCompletion counts one completion of level on day and refreshes
// the level's average attempts. Unknown levels are ignored.
func (a *Aggregate) RecordLevelCompletion(level int, day string) {
	if !ValidLevel(level) {
		return
	}
	a.TotalLevelsCompleted++
	a.LevelStats[level]++
	a.addDaily(day, DailyLevels, 1)
	a.RecomputeAverage(level)
}

// RecomputeAverage sets LevelAverageAttempts[level] from the current attempt
// and completion counts. The previous value is kept while either side is zero.
func (a *Aggregate) RecomputeAverage(level int) {
	attempts, completions := a.LevelAttempts[level], a.LevelStats[level]
	if attempts <= 0 || completions <= 0 {
		return
	}
	a.LevelAverageAttempts[level] = Round1(float64(attempts) / float64(completions))
}

// Apply folds one event into the aggregate.
func (a *Aggregate) Apply(e Event) {
	switch e.Type {
	case EventLevelAttempt:
		a.RecordLevelAttempt(e.Level)
		return
	case EventLevelComplete:
		a.RecordLevelCompletion(e.Level, e.Day())
		return
	}
	eff, ok := EffectOf(e.Type)
	if !ok {
		return
	}
	a.AddTotal(eff.Total, 1)
	a.addDaily(e.Day(), eff.Daily, 1)
}

// AddTotal adds delta to the named global counter.
func (a *Aggregate) AddTotal(field TotalField, delta int) {
	switch field {
	case TotalPlayers:
		a.TotalPlayers += delta
	case TotalGames:
		a.TotalGames += delta
	case TotalLevelsCompleted:
		a.TotalLevelsCompleted += delta
	case TotalKeysCollected:
		a.TotalKeysCollected += delta
	case TotalCEOPromotions:
		a.TotalCEOPromotions += delta
	}
}

// Total returns the named global counter.
func (a *Aggregate) Total(field TotalField) int {
	switch field {
	case TotalPlayers:
		return a.TotalPlayers
	case TotalGames:
		return a.TotalGames
	case TotalLevelsCompleted:
		return a.TotalLevelsCompleted
	case TotalKeysCollected:
		return a.TotalKeysCollected
	case TotalCEOPromotions:
		return a.TotalCEOPromotions
	}
	return 0
}

func (a *Aggregate) addDaily(day string, field DailyField, delta int) {
	d := a.DailyStats[day]
	d.Add(field, delta)
	a.DailyStats[day] = d
}

// Add adds delta to the named daily counter.
func (d *Daily) Add(field DailyField, delta int) {
	switch field {
	case DailyPlayers:
		d.Players += delta
	case DailyGames:
		d.Games += delta
	case DailyLevels:
		d.Levels += delta
	case DailyKeys:
		d.Keys += delta
	case DailyCEOPromotions:
		d.CEOPromotions += delta
	}
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
