// Package metrics exports list operation counters in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/catatsuy/kusari/internal/llmgr"
)

const namespace = "kusari"

// Metrics implements registry.Observer.
type Metrics struct {
	reg *prometheus.Registry

	operations *prometheus.CounterVec
	elements   *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "List operations by command and resulting status code.",
		}, []string{"command", "code"}),
		elements: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "elements",
			Help:      "Elements currently linked in each list.",
		}, []string{"list"}),
	}
	m.reg.MustRegister(m.operations, m.elements)
	return m
}

func (m *Metrics) Observe(list string, st llmgr.Status, count int) {
	m.operations.WithLabelValues(st.CommandName, st.CodeName).Inc()
	m.elements.WithLabelValues(list).Set(float64(count))
}

func (m *Metrics) Forget(list string) {
	m.elements.DeleteLabelValues(list)
}

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
