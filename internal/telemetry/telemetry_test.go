package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	done := m.StartStage(3)
	done()
	m.ObserveIteration(1.0, 0.5)
}

func TestObserveIteration(t *testing.T) {
	m := New()
	m.ObserveIteration(2.5, 0.25)
	m.ObserveIteration(1.5, 0.125)

	assert.InDelta(t, 2, testutil.ToFloat64(m.iterations), 1e-12)
	assert.InDelta(t, 1.5, testutil.ToFloat64(m.cost), 1e-12)
	assert.InDelta(t, 0.125, testutil.ToFloat64(m.residualNorm), 1e-12)
}

func TestStartStageSetsGauge(t *testing.T) {
	m := New()
	done := m.StartStage(2)
	require.NotNil(t, done)
	done()
	assert.InDelta(t, 2, testutil.ToFloat64(m.stage), 1e-12)
}
