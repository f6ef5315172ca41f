package metrics

const namespace = "gamestats"

// Metric names
const (
	MetricNameHTTPRequestsTotal   = "http_requests_total"
	MetricNameHTTPRequestDuration = "http_request_duration_seconds"
	MetricNameEventsRecorded      = "events_recorded_total"
	MetricNameBackendFallbacks    = "backend_fallbacks_total"
	MetricNameMirrorFailures      = "mirror_failures_total"
	MetricNameBackendState        = "backend_state"
	MetricNameLeaderboardCache    = "leaderboard_cache_lookups_total"
	MetricNameLiveSubscribers     = "live_subscribers"
)

// Metric help text
const (
	HelpTextHTTPRequestsTotal   = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration = "HTTP request latency in seconds"
	HelpTextEventsRecorded      = "Gameplay events persisted, by event type and backend that stored them"
	HelpTextBackendFallbacks    = "Operations that degraded from the relational backend to the file backend"
	HelpTextMirrorFailures      = "Best-effort file mirror writes that failed"
	HelpTextBackendState        = "1 for the current storage state, 0 otherwise"
	HelpTextLeaderboardCache    = "Leaderboard cache lookups by result"
	HelpTextLiveSubscribers     = "Connected live leaderboard subscribers"
)

// Label names
const (
	LabelMethod    = "method"
	LabelPath      = "path"
	LabelStatus    = "status"
	LabelType      = "type"
	LabelBackend   = "backend"
	LabelOperation = "operation"
	LabelTarget    = "target"
	LabelState     = "state"
	LabelResult    = "result"
)

var HTTPLatencyBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5}
