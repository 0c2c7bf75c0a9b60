// Package metrics expone contadores e histogramas Prometheus del motor de movimientos.
package metrics

import (
	"net/http"
	"time"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sanmarino"

var _ inventory.MetricsRecorder = (*Recorder)(nil)

// Recorder implementa inventory.MetricsRecorder.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New registra las métricas en un registro propio (más los collectors de Go y proceso).
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registra las métricas en reg (tests).
func NewWithRegistry(reg *prometheus.Registry) *Recorder {
	r := &Recorder{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "movements",
			Name:      "operations_total",
			Help:      "Operaciones del motor de movimientos por operación, tipo y resultado.",
		}, []string{"operation", "type", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "movements",
			Name:      "operation_duration_seconds",
			Help:      "Duración de las operaciones del motor de movimientos.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"operation", "type"}),
	}
	reg.MustRegister(r.operations, r.duration)
	return r
}

// ObserveOperation cuenta la operación y registra su duración.
func (r *Recorder) ObserveOperation(operation, movementType, result string, d time.Duration) {
	r.operations.WithLabelValues(operation, movementType, result).Inc()
	r.duration.WithLabelValues(operation, movementType).Observe(d.Seconds())
}

// Registry registro subyacente.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler handler HTTP para /metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Counter valor acumulado de operations_total para las etiquetas dadas (tests).
func (r *Recorder) Counter(operation, movementType, result string) prometheus.Counter {
	return r.operations.WithLabelValues(operation, movementType, result)
}
