package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution outcomes recorded for each legal name lookup.
const (
	OutcomeOK        = "ok"
	OutcomeTimeout   = "timeout"
	OutcomeUpstream  = "upstream_error"
	OutcomeMalformed = "malformed"
)

// Metrics provides observability for the bond module.
type Metrics struct {
	BondsCreated prometheus.Counter

	// Legal name resolution outcomes by result
	ResolutionOutcome *prometheus.CounterVec

	// Legal name resolution latency, successful or not
	ResolutionLatency prometheus.Histogram
}

// New creates the bond module metrics and registers them with reg.
// A nil reg creates unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BondsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "bonds_created_total",
			Help: "Total number of bonds created",
		}),
		ResolutionOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bonds_lei_resolutions_total",
			Help: "Total legal name resolutions by outcome",
		}, []string{"outcome"}),
		ResolutionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bonds_lei_resolution_duration_seconds",
			Help:    "Duration of legal name resolution against the LEI directory",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// IncrementBondsCreated records a persisted bond.
func (m *Metrics) IncrementBondsCreated() {
	if m != nil {
		m.BondsCreated.Inc()
	}
}

// ObserveResolution records the outcome and duration of one lookup.
func (m *Metrics) ObserveResolution(outcome string, d time.Duration) {
	if m != nil {
		m.ResolutionOutcome.WithLabelValues(outcome).Inc()
		m.ResolutionLatency.Observe(d.Seconds())
	}
}
