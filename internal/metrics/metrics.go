package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "vibecheck_dash"
)

var (
	backendDurationBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

	// Backend API metrics
	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Time taken for a backend API call to complete.",
		Buckets:   backendDurationBuckets,
	}, []string{"operation"})

	BackendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_requests_total",
		Help:      "Count of backend API calls.",
	}, []string{"operation", "status"})

	// Live sync metrics
	PushMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "push_messages_total",
		Help:      "Count of push channel messages by type.",
	}, []string{"type"})

	PushMalformedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "push_malformed_total",
		Help:      "Count of push channel payloads dropped as unparsable.",
	})

	PollTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_ticks_total",
		Help:      "Count of fallback poll ticks.",
	}, []string{"status"})

	TrackedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracked_sessions",
		Help:      "Number of live tracking sessions (0 or 1).",
	})

	// Store metrics
	KnownAssessments = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "known_assessments",
		Help:      "Number of assessments currently held in the store.",
	})

	StoreMergesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_merges_total",
		Help:      "Count of assessment store merge operations.",
	}, []string{"result"})

	TerminalLatchRejectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "terminal_latch_rejects_total",
		Help:      "Count of status regressions discarded after a terminal state was observed.",
	})
)
