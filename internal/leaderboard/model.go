// Package leaderboard keeps one progress record per session and ranks the
// completed ones by fewest deaths.
package leaderboard

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("leaderboard record not found")
	ErrNegativeDeaths = errors.New("deaths must not be negative")
)

// Record is one session's death tally. LevelDeaths only ever holds levels in
// the fixed level set; TotalDeaths is derived from it except for full-run
// submissions that arrive without per-level data.
type Record struct {
	SessionID   string      `json:"sessionId"`
	PlayerName  string      `json:"playerName"`
	LevelDeaths map[int]int `json:"levelDeaths"`
	TotalDeaths int         `json:"totalDeaths"`
	Completed   bool        `json:"completed"`
	CompletedAt time.Time   `json:"completedAt,omitzero"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Update is one change reported by a client. Build it with Progress or
// Completion.
type Update struct {
	SessionID  string
	PlayerName string

	// per-level progress
	Level  int
	Deaths int

	// full-run submission
	FullRun       bool
	LevelDeaths   map[int]int
	ReportedTotal int

	Complete    bool
	CompletedAt time.Time
}

// Progress reports the current death count for one level.
func Progress(sessionID string, level, deaths int, completed bool) Update {
	return Update{SessionID: sessionID, Level: level, Deaths: deaths, Complete: completed}
}

// Completion reports a finished run. levelDeaths may be empty, in which case
// totalDeaths is taken as reported.
func Completion(sessionID, playerName string, totalDeaths int, levelDeaths map[int]int, completedAt time.Time) Update {
	return Update{
		SessionID:     sessionID,
		PlayerName:    playerName,
		FullRun:       true,
		LevelDeaths:   levelDeaths,
		ReportedTotal: totalDeaths,
		Complete:      true,
		CompletedAt:   completedAt,
	}
}

// Entry is a ranked, completed record as shown to players.
type Entry struct {
	Rank                  int         `json:"rank"`
	PlayerName            string      `json:"playerName"`
	TotalDeaths           int         `json:"totalDeaths"`
	LevelDeaths           map[int]int `json:"levelDeaths"`
	CompletedAt           time.Time   `json:"completedAt,omitzero"`
	CompletionTimeMinutes *int        `json:"completionTimeMinutes"`
}

type LevelDeathStat struct {
	AverageDeaths float64 `json:"averageDeaths"`
	PlayerCount   int     `json:"playerCount"`
}

// Board is the public leaderboard view.
type Board struct {
	Leaderboard []Entry                `json:"leaderboard"`
	LevelStats  map[int]LevelDeathStat `json:"levelStats"`
}
