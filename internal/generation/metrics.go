package generation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	submitAttempts *prometheus.HistogramVec
	outcomes       *prometheus.CounterVec
	updates        *prometheus.CounterVec
	runDuration    prometheus.Histogram
}

// NewMetrics creates the pipeline collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submitAttempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vidsound",
			Name:      "submit_attempt_duration_seconds",
			Help:      "Duration of individual submission attempts to the generation service.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidsound",
			Name:      "generation_outcomes_total",
			Help:      "Terminal outcomes of generation runs.",
		}, []string{"outcome"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidsound",
			Name:      "queue_updates_total",
			Help:      "Interim queue updates received from the generation service.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vidsound",
			Name:      "generation_run_duration_seconds",
			Help:      "Wall-clock duration of generation runs.",
			Buckets:   []float64{1, 5, 10, 20, 30, 45, 60, 90, 120},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.submitAttempts, m.outcomes, m.updates, m.runDuration)
	}
	return m
}

func (m *Metrics) observeAttempt(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.submitAttempts.WithLabelValues(result).Observe(elapsed.Seconds())
}

func (m *Metrics) observeOutcome(o Outcome) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(o.Kind)).Inc()
	m.runDuration.Observe(o.Elapsed.Seconds())
}

func (m *Metrics) observeUpdate(status Status) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(string(status)).Inc()
}
