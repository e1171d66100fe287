package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		byName[f.GetName()] = f
	}
	return byName
}

func TestIntakeMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIntakeMetrics(reg)

	m.ObserveChat("success", 0.25)
	m.ObserveChat("success", 0.5)
	m.ObserveChat("fallback_upstream", 1.0)
	m.ObserveReset()

	families := gather(t, reg)
	chat := families["medforce_intake_chat_total"]
	require.NotNil(t, chat)

	var success, fallback float64
	for _, metric := range chat.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "outcome" {
				switch label.GetValue() {
				case "success":
					success = metric.GetCounter().GetValue()
				case "fallback_upstream":
					fallback = metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 2.0, success)
	assert.Equal(t, 1.0, fallback)

	reset := families["medforce_intake_reset_total"]
	require.NotNil(t, reset)
	assert.Equal(t, 1.0, reset.GetMetric()[0].GetCounter().GetValue())
}

func TestNilMetricsAreSafe(t *testing.T) {
	var im *IntakeMetrics
	var sm *SimulationMetrics
	assert.NotPanics(t, func() {
		im.ObserveChat("success", 0.1)
		im.ObserveReset()
		sm.ObserveGeneration("labs", "ok")
		sm.ObserveImage("ok")
	})
}

func TestSimulationMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSimulationMetrics(reg)

	m.ObserveGeneration("profile", "ok")
	m.ObserveImage("failed")

	families := gather(t, reg)
	require.NotNil(t, families["medforce_simulation_generation_total"])
	require.NotNil(t, families["medforce_simulation_image_attempts_total"])
}
