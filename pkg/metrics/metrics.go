// Package metrics exposes the Prometheus metrics of the pagination tracker.
// All metrics are defined in their respective packages (tracker, store,
// httpfetch, ratelimit) and registered via promauto on import.
//
// This package provides the HTTP endpoint and a reference of all metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by all packages.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer backing Handler.
var Gatherer = prometheus.DefaultGatherer

// Path is where NewServer mounts Handler.
const Path = "/metrics"

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// NewServer returns an HTTP server exposing Handler at Path and a
// liveness probe at /health. The caller starts and shuts it down.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(Path, Handler())
	mux.HandleFunc("/health", healthHandler)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Metrics Documentation
//
// Tracker Metrics (pkg/tracker):
//   - pagetracker_fetches_total{result} (Counter): Page fetches by result (success, error, superseded)
//   - pagetracker_fetch_duration_seconds (Histogram): Duration of page fetches
//   - pagetracker_requests_in_flight (Gauge): Page fetches currently running
//   - pagetracker_track_decisions_total{decision} (Counter): Track outcomes
//     (ignored, within_loaded, end_of_data, triggered)
//   - pagetracker_resets_total (Counter): Resets started
//   - pagetracker_singleflight_joins_total (Counter): LoadNextPage calls joining a running fetch
//
// Cache Metrics (pkg/store):
//   - pagetracker_cache_hits_total (Counter): Pages served from Redis
//   - pagetracker_cache_misses_total (Counter): Lookups that fell through to the backend
//   - pagetracker_cache_errors_total{operation} (Counter): Cache operation errors
//   - pagetracker_cache_pruned_keys_total (Counter): Stale pages removed on refresh
//
// Request Metrics (pkg/httpfetch):
//   - pagetracker_http_requests_total{status} (Counter): Page requests by HTTP status
//   - pagetracker_http_request_duration_seconds (Histogram): Page request duration
//   - pagetracker_http_errors_total{class} (Counter): Errors by class
//     (client, server, rate_limit, network, decode)
//
// Retry Metrics (pkg/httpfetch):
//   - pagetracker_http_retries_total{error_class} (Counter): Retry attempts by error class
//   - pagetracker_http_retry_backoff_seconds{error_class} (Histogram): Backoff duration
//   - pagetracker_http_retry_exhausted_total{error_class} (Counter): Requests that exhausted retries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - pagetracker_ratelimit_remaining{scope} (Gauge): Requests remaining in the window
//   - pagetracker_ratelimit_blocks_total{scope} (Counter): Requests blocked by an exhausted budget
//   - pagetracker_ratelimit_throttles_total{scope} (Counter): Requests delayed by a low budget
//
// Example Prometheus Queries:
//
//	# Cache Hit Rate
//	sum(rate(pagetracker_cache_hits_total[5m])) /
//	(sum(rate(pagetracker_cache_hits_total[5m])) + sum(rate(pagetracker_cache_misses_total[5m])))
//
//	# Share of scroll events that trigger a fetch
//	rate(pagetracker_track_decisions_total{decision="triggered"}[5m]) /
//	sum(rate(pagetracker_track_decisions_total[5m]))
//
//	# P95 Fetch Latency
//	histogram_quantile(0.95, rate(pagetracker_fetch_duration_seconds_bucket[5m]))
