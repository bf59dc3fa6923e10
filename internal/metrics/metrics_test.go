package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation("read", "role.GetRole", time.Now(), nil)
	m.ObserveOperation("read", "role.GetRole", time.Now(), nil)
	m.ObserveOperation("write", "role.WriteRole", time.Now(), errors.New("db down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("read", "role.GetRole", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("write", "role.WriteRole", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Duration))
}

func TestAddQuarantined(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AddQuarantined("Role", StrategyFlag, 1)
	m.AddQuarantined("Device", StrategyDelete, 3)
	m.AddQuarantined("Device", StrategyDelete, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Quarantined.WithLabelValues("Role", StrategyFlag)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Quarantined.WithLabelValues("Device", StrategyDelete)))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("read", "x", time.Now(), nil)
		m.AddQuarantined("Role", StrategyFlag, 1)
	})
}
