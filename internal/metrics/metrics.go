// Package metrics exposes Prometheus collectors for the donation engine
// and its HTTP surface.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kashyap0729/good-will-hunting/internal/model"
	"github.com/kashyap0729/good-will-hunting/internal/service"
)

const namespace = "goodwill"

// Metrics holds the application collectors and the registry they live in
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	donations        *prometheus.CounterVec
	donationDuration *prometheus.HistogramVec
	donationAttempts prometheus.Histogram
	pointsAwarded    *prometheus.CounterVec
	tierUpgrades     prometheus.Counter
	achievements     *prometheus.CounterVec
	leaderChanges    prometheus.Counter
	notifyWarnings   prometheus.Counter

	reconcileRuns     *prometheus.CounterVec
	reconcileDuration prometheus.Histogram
}

// New creates and registers every collector on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
		donations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "donations",
			Name:      "processed_total",
			Help:      "Donations processed, by outcome.",
		}, []string{"outcome"}),
		donationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "donations",
			Name:      "duration_seconds",
			Help:      "Time spent processing a donation including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"outcome"}),
		donationAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "donations",
			Name:      "attempts",
			Help:      "Units of work needed to commit a donation.",
			Buckets:   []float64{1, 2, 3, 5, 8},
		}),
		pointsAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "donations",
			Name:      "points_awarded_total",
			Help:      "Points awarded, by source.",
		}, []string{"source"}),
		tierUpgrades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "donors",
			Name:      "tier_upgrades_total",
			Help:      "Tier upgrades caused by donations.",
		}),
		achievements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "donors",
			Name:      "achievements_unlocked_total",
			Help:      "Achievements unlocked, by achievement.",
		}, []string{"achievement"}),
		leaderChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "locations",
			Name:      "leader_changes_total",
			Help:      "Location leader changes caused by donations.",
		}),
		notifyWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "failures_total",
			Help:      "Committed donations whose notification failed.",
		}),
		reconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "leader_reconcile_runs_total",
			Help:      "Leader reconciliation runs, by success.",
		}, []string{"success"}),
		reconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "leader_reconcile_duration_seconds",
			Help:      "Duration of leader reconciliation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
	}
	m.Registry.MustRegister(
		m.httpInFlight, m.httpRequests, m.httpDuration,
		m.donations, m.donationDuration, m.donationAttempts, m.pointsAwarded,
		m.tierUpgrades, m.achievements, m.leaderChanges, m.notifyWarnings,
		m.reconcileRuns, m.reconcileDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler returns an HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Outcome labels a ProcessDonation call: "committed" or the error kind
func Outcome(err error) string {
	if err == nil {
		return "committed"
	}
	var de *service.DonationError
	if errors.As(err, &de) {
		return string(de.Kind)
	}
	return "error"
}

// ObserveDonation implements service.DonationObserver
func (m *Metrics) ObserveDonation(result *model.DonationResult, err error, elapsed time.Duration) {
	outcome := Outcome(err)
	m.donations.WithLabelValues(outcome).Inc()
	m.donationDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if err != nil || result == nil {
		return
	}

	m.donationAttempts.Observe(float64(result.Attempts))
	m.pointsAwarded.WithLabelValues("base").Add(float64(result.PointsAwarded))
	m.pointsAwarded.WithLabelValues("missing_item_bonus").Add(float64(result.BonusPoints))
	m.pointsAwarded.WithLabelValues("achievement").Add(float64(result.AchievementPoints))
	if result.TierUpgraded {
		m.tierUpgrades.Inc()
	}
	for _, id := range result.NewAchievements {
		m.achievements.WithLabelValues(id).Inc()
	}
	if result.LeaderChanged {
		m.leaderChanges.Inc()
	}
	if len(result.Warnings) > 0 {
		m.notifyWarnings.Inc()
	}
}

// RecordReconcile records one leader reconciliation run
func (m *Metrics) RecordReconcile(duration time.Duration, success bool) {
	m.reconcileRuns.WithLabelValues(strconv.FormatBool(success)).Inc()
	m.reconcileDuration.Observe(duration.Seconds())
}

// InstrumentHandler wraps next with HTTP metrics collection. Routes are
// labelled with the ServeMux pattern that matched, so path parameters do
// not create new series.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		} else if i := strings.IndexByte(route, ' '); i >= 0 {
			route = route[i+1:]
		}
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
