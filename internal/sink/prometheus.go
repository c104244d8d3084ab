package sink

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus keeps the latest value of every sample in a gauge vector.
type Prometheus struct {
	reg   *prometheus.Registry
	gauge *prometheus.GaugeVec
}

// NewPrometheus registers its gauge on a private registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "systemd",
			Name:      "unit_running",
			Help:      "1 if the service is running (or a oneshot that exited 0), 0 otherwise.",
		},
		[]string{"service", "type_instance"},
	)
	reg.MustRegister(gauge)
	return &Prometheus{reg: reg, gauge: gauge}
}

func (p *Prometheus) Dispatch(ctx context.Context, s Sample) error {
	_ = ctx
	p.gauge.WithLabelValues(s.PluginInstance, s.TypeInstance).Set(s.Value)
	return nil
}

// Gauge exposes the underlying vector (tests read it with testutil).
func (p *Prometheus) Gauge() *prometheus.GaugeVec { return p.gauge }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}
