package metrics

import "github.com/prometheus/client_golang/prometheus"

// EngineMetrics counts reservation-engine activity.
type EngineMetrics struct {
	reserved *prometheus.CounterVec
	released *prometheus.CounterVec
	unmet    prometheus.Counter
}

// NewEngineMetrics registers reservation counters on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	reserved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_copies_reserved_total",
		Help: "Copies reserved, by operation.",
	}, []string{"op"})
	released := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_copies_released_total",
		Help: "Copies released, by operation.",
	}, []string{"op"})
	unmet := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservation_unmet_lines_total",
		Help: "Deck lines left short after reoptimize or auto-fill.",
	})
	reg.MustRegister(reserved, released, unmet)
	return &EngineMetrics{reserved: reserved, released: released, unmet: unmet}
}

// AddReserved counts copies claimed by the named operation.
func (m *EngineMetrics) AddReserved(op string, copies int) {
	if m == nil || m.reserved == nil || copies <= 0 {
		return
	}
	m.reserved.WithLabelValues(normalizeLabel(op)).Add(float64(copies))
}

// AddReleased counts copies returned by the named operation.
func (m *EngineMetrics) AddReleased(op string, copies int) {
	if m == nil || m.released == nil || copies <= 0 {
		return
	}
	m.released.WithLabelValues(normalizeLabel(op)).Add(float64(copies))
}

// AddUnmet counts deck lines that could not be fully reserved.
func (m *EngineMetrics) AddUnmet(lines int) {
	if m == nil || m.unmet == nil || lines <= 0 {
		return
	}
	m.unmet.Add(float64(lines))
}
