// Package metrics exposes Prometheus collectors for the contest finder.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cyclesTotal          *prometheus.CounterVec
	cycleDurationSeconds prometheus.Histogram
	listingContestsTotal *prometheus.CounterVec
	detailFetchesTotal   *prometheus.CounterVec
	classificationsTotal *prometheus.CounterVec
	notificationsTotal   *prometheus.CounterVec
	throttleDelaySeconds prometheus.Histogram
	contestsInFlight     prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		cyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finder_cycles_total",
				Help: "Total number of polling cycles, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		cycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "finder_cycle_duration_seconds",
				Help:    "Histogram of full polling cycle durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
		)

		listingContestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finder_listing_contests_total",
				Help: "Total contests returned by listing fetches, labeled by category.",
			},
			[]string{"category"},
		)

		detailFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finder_detail_fetches_total",
				Help: "Total contest detail fetches, labeled by status.",
			},
			[]string{"status"},
		)

		classificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finder_classifications_total",
				Help: "Total contest classifications, labeled by resulting status.",
			},
			[]string{"status"},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finder_notifications_total",
				Help: "Total contest alerts attempted, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		throttleDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "finder_throttle_delay_seconds",
				Help:    "Histogram of delays imposed before outbound requests.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)

		contestsInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "finder_contests_in_flight",
				Help: "Number of contests currently being detail-fetched.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCycle records one completed polling cycle.
func ObserveCycle(outcome string, duration time.Duration) {
	cyclesTotal.WithLabelValues(outcome).Inc()
	cycleDurationSeconds.Observe(duration.Seconds())
}

// ObserveListing records contests returned by a listing fetch.
func ObserveListing(category string, count int) {
	listingContestsTotal.WithLabelValues(category).Add(float64(count))
}

// ObserveDetailFetch increments the detail fetch counter for the given status.
func ObserveDetailFetch(status string) {
	detailFetchesTotal.WithLabelValues(status).Inc()
}

// ObserveClassification increments the classification counter for the
// resulting contest status.
func ObserveClassification(status string) {
	classificationsTotal.WithLabelValues(status).Inc()
}

// ObserveNotification increments the notification counter for the given outcome.
func ObserveNotification(outcome string) {
	notificationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveThrottleDelay records the duration of a pre-request wait.
func ObserveThrottleDelay(duration time.Duration) {
	throttleDelaySeconds.Observe(duration.Seconds())
}

// IncContestsInFlight increments the in-flight detail fetch gauge.
func IncContestsInFlight() {
	contestsInFlight.Inc()
}

// DecContestsInFlight decrements the in-flight detail fetch gauge.
func DecContestsInFlight() {
	contestsInFlight.Dec()
}
