package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the pre-consultation chat flow.
type IntakeMetrics struct {
	chatTotal   *prometheus.CounterVec
	chatLatency *prometheus.HistogramVec
	resetTotal  prometheus.Counter
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		chatTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medforce",
			Subsystem: "intake",
			Name:      "chat_total",
			Help:      "Total chat turns by outcome",
		}, []string{"outcome"}),
		chatLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medforce",
			Subsystem: "intake",
			Name:      "chat_latency_seconds",
			Help:      "End-to-end latency of one chat turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		resetTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medforce",
			Subsystem: "intake",
			Name:      "reset_total",
			Help:      "Total conversation resets",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.chatTotal, m.chatLatency, m.resetTotal)
	return m
}

func (m *IntakeMetrics) ObserveChat(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.chatTotal.WithLabelValues(outcome).Inc()
	m.chatLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *IntakeMetrics) ObserveReset() {
	if m == nil {
		return
	}
	m.resetTotal.Inc()
}

// SimulationMetrics covers ground-truth generation calls.
type SimulationMetrics struct {
	generationTotal *prometheus.CounterVec
	imageAttempts   *prometheus.CounterVec
}

func NewSimulationMetrics(reg prometheus.Registerer) *SimulationMetrics {
	m := &SimulationMetrics{
		generationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medforce",
			Subsystem: "simulation",
			Name:      "generation_total",
			Help:      "Total generation calls by artifact kind",
		}, []string{"kind", "status"}),
		imageAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medforce",
			Subsystem: "simulation",
			Name:      "image_attempts_total",
			Help:      "Image generation attempts by outcome",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.generationTotal, m.imageAttempts)
	return m
}

func (m *SimulationMetrics) ObserveGeneration(kind, status string) {
	if m == nil {
		return
	}
	m.generationTotal.WithLabelValues(kind, status).Inc()
}

func (m *SimulationMetrics) ObserveImage(status string) {
	if m == nil {
		return
	}
	m.imageAttempts.WithLabelValues(status).Inc()
}
