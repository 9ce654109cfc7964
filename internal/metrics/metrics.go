package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps Prometheus collectors for restart-sentinel.
type Metrics struct {
	registry                 *prometheus.Registry
	cycleDurationSeconds     prometheus.Histogram
	secondsUntilRestart      *prometheus.GaugeVec
	warningsTotal            *prometheus.CounterVec
	actuatorTogglesTotal     *prometheus.CounterVec
	timeFetchErrorsTotal     prometheus.Counter
	lastSuccessfulCycleGauge prometheus.Gauge
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		cycleDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "restart_sentinel_cycle_duration_seconds",
			Help:    "Duration of scheduling cycles in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		secondsUntilRestart: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "restart_sentinel_seconds_until_restart",
			Help: "Seconds until the next scheduled restart by server.",
		}, []string{"server"}),
		warningsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restart_sentinel_warnings_total",
			Help: "Total warnings emitted by server and lead-time.",
		}, []string{"server", "lead_time"}),
		actuatorTogglesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "restart_sentinel_actuator_toggles_total",
			Help: "Total acknowledged actuator toggles by server and state.",
		}, []string{"server", "state"}),
		timeFetchErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "restart_sentinel_time_fetch_errors_total",
			Help: "Total time API failures.",
		}),
		lastSuccessfulCycleGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "restart_sentinel_last_successful_cycle_timestamp",
			Help: "Unix timestamp of the last successful cycle.",
		}),
	}

	registry.MustRegister(
		m.cycleDurationSeconds,
		m.secondsUntilRestart,
		m.warningsTotal,
		m.actuatorTogglesTotal,
		m.timeFetchErrorsTotal,
		m.lastSuccessfulCycleGauge,
	)

	return m
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCycleDuration records the duration of a completed cycle.
func (m *Metrics) ObserveCycleDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.cycleDurationSeconds.Observe(duration.Seconds())
}

// SetSecondsUntilRestart sets the countdown gauge for the given server.
func (m *Metrics) SetSecondsUntilRestart(server string, seconds int64) {
	if m == nil {
		return
	}
	m.secondsUntilRestart.WithLabelValues(server).Set(float64(seconds))
}

// IncWarningsTotal increments the warning counter for the given server and lead-time.
func (m *Metrics) IncWarningsTotal(server string, leadTime int) {
	if m == nil {
		return
	}
	m.warningsTotal.WithLabelValues(server, strconv.Itoa(leadTime)).Inc()
}

// IncActuatorToggles increments the toggle counter for the given server/state.
func (m *Metrics) IncActuatorToggles(server string, active bool) {
	if m == nil {
		return
	}
	state := "inactive"
	if active {
		state = "active"
	}
	m.actuatorTogglesTotal.WithLabelValues(server, state).Inc()
}

// IncTimeFetchErrors increments the time API error counter.
func (m *Metrics) IncTimeFetchErrors() {
	if m == nil {
		return
	}
	m.timeFetchErrorsTotal.Inc()
}

// SetLastSuccessfulCycleTimestamp sets the last successful cycle time.
func (m *Metrics) SetLastSuccessfulCycleTimestamp(t time.Time) {
	if m == nil {
		return
	}
	m.lastSuccessfulCycleGauge.Set(float64(t.Unix()))
}
