package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrementBondsCreated()
	m.ObserveResolution(OutcomeOK, 10*time.Millisecond)
	m.ObserveResolution(OutcomeTimeout, time.Second)
	m.ObserveResolution(OutcomeTimeout, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BondsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolutionOutcome.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResolutionOutcome.WithLabelValues(OutcomeTimeout)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ResolutionLatency))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementBondsCreated()
		m.ObserveResolution(OutcomeMalformed, time.Millisecond)
	})
}
