// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the control-loop counters. Counters are plain atomics so
// the loop never touches prometheus types directly; the registry reads them
// on scrape.
type Metrics struct {
	CyclesTotal    atomic.Uint64 // trigger seen, inspection attempted
	CyclesOK       atomic.Uint64
	QualityFaults  atomic.Uint64
	SafetyStops    atomic.Uint64
	Reconnects     atomic.Uint64
	ReadErrors     atomic.Uint64
	WriteErrors    atomic.Uint64
	Recalibrations atomic.Uint64

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.register()
	return m
}

func (m *Metrics) register() {
	gauge := func(name, help string, load func() uint64) {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: name, Help: help},
			func() float64 { return float64(load()) },
		))
	}

	gauge("inspector_cycles_total", "Total inspection cycles attempted", m.CyclesTotal.Load)
	gauge("inspector_cycles_ok_total", "Cycles that ended OK", m.CyclesOK.Load)
	gauge("inspector_quality_faults_total", "Cycles that ended in a quality fault", m.QualityFaults.Load)
	gauge("inspector_safety_stops_total", "Cycles that ended in a safety stop", m.SafetyStops.Load)
	gauge("inspector_reconnects_total", "Controller reconnect attempts", m.Reconnects.Load)
	gauge("inspector_read_errors_total", "Trigger read failures", m.ReadErrors.Load)
	gauge("inspector_write_errors_total", "Result write failures", m.WriteErrors.Load)
	gauge("inspector_recalibrations_total", "Column recalibration passes", m.Recalibrations.Load)
}

// Handler returns the Prometheus scrape handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
