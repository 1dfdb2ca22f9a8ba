package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bienestar_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bienestar_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bienestar_enrollments_total",
		Help: "Enrollment and unenrollment attempts by outcome",
	}, []string{"operation", "result"})

	nearbySearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bienestar_nearby_searches_total",
		Help: "Proximity searches by cache outcome",
	}, []string{"cache"})

	nearbyResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bienestar_nearby_results",
		Help:    "Number of venues returned by a proximity search",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bienestar_registrations_total",
		Help: "Account registrations by outcome",
	}, []string{"result"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bienestar_rate_limited_requests_total",
		Help: "Requests rejected by the rate limiter",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveEnrollment counts an enroll/unenroll attempt; result is "success" or a failure kind
func ObserveEnrollment(operation, result string) {
	enrollments.WithLabelValues(operation, result).Inc()
}

// ObserveNearby records a proximity search
func ObserveNearby(cacheHit bool, results int) {
	label := "miss"
	if cacheHit {
		label = "hit"
	}
	nearbySearches.WithLabelValues(label).Inc()
	nearbyResults.Observe(float64(results))
}

// ObserveRegistration counts a registration attempt
func ObserveRegistration(result string) {
	registrations.WithLabelValues(result).Inc()
}

// IncRateLimited counts a request rejected with 429
func IncRateLimited() {
	rateLimited.Inc()
}
