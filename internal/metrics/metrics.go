package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricNameHTTPRequestsTotal,
			Help:      HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      MetricNameHTTPRequestDuration,
			Help:      HelpTextHTTPRequestDuration,
			Buckets:   HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)
)

// Storage Metrics
var (
	EventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricNameEventsRecorded,
			Help:      HelpTextEventsRecorded,
		},
		[]string{LabelType, LabelBackend},
	)

	BackendFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricNameBackendFallbacks,
			Help:      HelpTextBackendFallbacks,
		},
		[]string{LabelOperation},
	)

	MirrorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricNameMirrorFailures,
			Help:      HelpTextMirrorFailures,
		},
		[]string{LabelTarget},
	)

	BackendState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      MetricNameBackendState,
			Help:      HelpTextBackendState,
		},
		[]string{LabelState},
	)

	LeaderboardCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricNameLeaderboardCache,
			Help:      HelpTextLeaderboardCache,
		},
		[]string{LabelResult},
	)

	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      MetricNameLiveSubscribers,
			Help:      HelpTextLiveSubscribers,
		},
	)
)

// SetBackendState marks state as current and clears the others.
func SetBackendState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		BackendState.WithLabelValues(s).Set(v)
	}
}
