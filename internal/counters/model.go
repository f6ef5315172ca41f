package counters

import "time"

const (
	MinLevel = 1
	MaxLevel = 10
)

// Daily holds the per-date rollup. Field names follow the persisted layout.
type Daily struct {
	Players       int `json:"players"`
	Games         int `json:"games"`
	Levels        int `json:"levels"`
	Keys          int `json:"keys"`
	CEOPromotions int `json:"ceoPromotions"`
}

// Aggregate is the full set of running counters describing game-wide telemetry.
// Level maps are keyed by level number and always hold exactly MinLevel..MaxLevel
// once normalized; LevelAverageAttempts only holds levels whose average has been
// computed at least once.
type Aggregate struct {
	TotalPlayers         int              `json:"totalPlayers"`
	TotalGames           int              `json:"totalGames"`
	TotalLevelsCompleted int              `json:"totalLevelsCompleted"`
	TotalKeysCollected   int              `json:"totalKeysCollected"`
	TotalCEOPromotions   int              `json:"totalCEOPromotions"`
	LevelStats           map[int]int      `json:"levelStats"`
	LevelAttempts        map[int]int      `json:"levelAttempts"`
	LevelAverageAttempts map[int]float64  `json:"levelAverageAttempts"`
	DailyStats           map[string]Daily `json:"dailyStats"`
	LastUpdated          time.Time        `json:"lastUpdated,omitzero"`
}

type TotalField string

const (
	TotalPlayers         TotalField = "totalPlayers"
	TotalGames           TotalField = "totalGames"
	TotalLevelsCompleted TotalField = "totalLevelsCompleted"
	TotalKeysCollected   TotalField = "totalKeysCollected"
	TotalCEOPromotions   TotalField = "totalCEOPromotions"
)

// TotalFields lists every global counter in display order.
var TotalFields = []TotalField{
	TotalPlayers,
	TotalGames,
	TotalLevelsCompleted,
	TotalKeysCollected,
	TotalCEOPromotions,
}

type DailyField string

const (
	DailyPlayers       DailyField = "players"
	DailyGames         DailyField = "games"
	DailyLevels        DailyField = "levels"
	DailyKeys          DailyField = "keys"
	DailyCEOPromotions DailyField = "ceo_promotions"
)

type EventType string

const (
	EventNewPlayer      EventType = "new_player"
	EventGameStart      EventType = "game_start"
	EventLevelAttempt   EventType = "level_attempt"
	EventLevelComplete  EventType = "level_complete"
	EventKeyCollected   EventType = "key_collected"
	EventCEOPromotion   EventType = "ceo_promotion"
	EventPlayerProgress EventType = "player_progress"
	EventGameComplete   EventType = "game_complete"
	EventStatsReset     EventType = "stats_reset"
)

// Event is one entry of the append-only gameplay log. Level is zero for events
// that are not scoped to a level.
type Event struct {
	SessionID string
	Type      EventType
	Level     int
	Payload   map[string]any
	At        time.Time
}

// Day returns the UTC calendar date the event counts towards.
func (e Event) Day() string {
	return DayOf(e.At)
}

func DayOf(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// Effect names the counters an event bumps by one.
type Effect struct {
	Total TotalField
	Daily DailyField
}

var effects = map[EventType]Effect{
	EventNewPlayer:     {Total: TotalPlayers, Daily: DailyPlayers},
	EventGameStart:     {Total: TotalGames, Daily: DailyGames},
	EventLevelComplete: {Total: TotalLevelsCompleted, Daily: DailyLevels},
	EventKeyCollected:  {Total: TotalKeysCollected, Daily: DailyKeys},
	EventCEOPromotion:  {Total: TotalCEOPromotions, Daily: DailyCEOPromotions},
}

// EffectOf reports the global and daily counters bumped by t. Events that only
// land in the log (attempts, progress, resets) have no effect.
func EffectOf(t EventType) (Effect, bool) {
	eff, ok := effects[t]
	return eff, ok
}
