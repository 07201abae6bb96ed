package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Track decision labels.
const (
	decisionIgnored      = "ignored"
	decisionWithinLoaded = "within_loaded"
	decisionEndOfData    = "end_of_data"
	decisionTriggered    = "triggered"
)

// Fetch result labels.
const (
	resultSuccess    = "success"
	resultError      = "error"
	resultSuperseded = "superseded"
)

var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagetracker_fetches_total",
		Help: "Page fetches by result",
	}, []string{"result"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pagetracker_fetch_duration_seconds",
		Help:    "Duration of page fetches in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	requestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pagetracker_requests_in_flight",
		Help: "Page fetches currently running",
	})

	trackDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagetracker_track_decisions_total",
		Help: "Outcome of Track calls",
	}, []string{"decision"})

	resetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagetracker_resets_total",
		Help: "Resets started",
	})

	singleflightJoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagetracker_singleflight_joins_total",
		Help: "LoadNextPage calls that joined a fetch already in flight",
	})
)
