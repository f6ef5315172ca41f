package stats

// ResetConfirmation must be passed to ResetAll alongside a valid admin key.
const ResetConfirmation = "RESET"

// AdminLeaderboardLimit is how many ranked entries the admin summary carries.
const AdminLeaderboardLimit = 10

// MaxPlayerNameLength bounds names submitted with a finished run.
const MaxPlayerNameLength = 32

// Storage states. The service starts probing when a database is configured
// and settles on one of the other two for the rest of the process lifetime.
type State string

const (
	StateProbing    State = "probing"
	StateRelational State = "relational-active"
	StateFileOnly   State = "file-only"
)

var allStates = []string{string(StateProbing), string(StateRelational), string(StateFileOnly)}

// Operation labels used in logs and fallback metrics.
const (
	opApply       = "apply"
	opSession     = "session"
	opEvent       = "event"
	opLoad        = "load"
	opLeaderboard = "leaderboard"
	opReset       = "reset"
)

const (
	mirrorStats       = "stats"
	mirrorLeaderboard = "leaderboard"
)
