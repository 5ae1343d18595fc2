package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every exported metric.
const Namespace = "edge_router"

// Prometheus holds the exported metric vectors.
type Prometheus struct {
	RouteDecisions     *prometheus.CounterVec
	BackendHealthy     *prometheus.GaugeVec
	HealthProbes       *prometheus.CounterVec
	HealthProbeSeconds *prometheus.HistogramVec
	ConfigReloads      *prometheus.CounterVec
}

// NewPrometheus creates the vectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		RouteDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "router",
				Name:      "decisions_total",
				Help:      "Routing decisions by upstream and outcome",
			},
			[]string{"upstream", "outcome"},
		),
		BackendHealthy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "backend",
				Name:      "healthy",
				Help:      "Whether a backend is currently eligible for traffic (1) or not (0)",
			},
			[]string{"upstream", "backend"},
		),
		HealthProbes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "healthcheck",
				Name:      "probes_total",
				Help:      "Health probes by upstream, backend and result",
			},
			[]string{"upstream", "backend", "result"},
		),
		HealthProbeSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "healthcheck",
				Name:      "probe_duration_seconds",
				Help:      "Health probe duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"upstream"},
		),
		ConfigReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "config",
				Name:      "reloads_total",
				Help:      "Configuration reload attempts by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		p.RouteDecisions,
		p.BackendHealthy,
		p.HealthProbes,
		p.HealthProbeSeconds,
		p.ConfigReloads,
	)

	return p
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func gauge(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}
