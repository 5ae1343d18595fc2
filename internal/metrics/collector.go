package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type EventType string

const (
	EventRouteSelected  EventType = "route_selected"
	EventRouteFailed    EventType = "route_failed"
	EventHealthChanged  EventType = "health_changed"
	EventProbeCompleted EventType = "probe_completed"
	EventConfigReloaded EventType = "config_reloaded"
)

// Failure reasons carried by EventRouteFailed.
const (
	ReasonNoHost           = "no_host"
	ReasonUnknownHost      = "unknown_host"
	ReasonNoHealthyBackend = "no_healthy_backend"
	ReasonInternal         = "internal"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Upstream  string
	Backend   string
	Host      string
	Reason    string
	Duration  time.Duration
	Healthy   bool
	Success   bool
}

// Emit sends ev without blocking. Events are dropped when ch is nil or full.
func Emit(ch chan<- MetricEvent, ev MetricEvent) {
	if ch == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case ch <- ev:
	default:
	}
}

type Collector struct {
	eventCh  chan MetricEvent
	metrics  *Metrics
	prom     *Prometheus
	registry *prometheus.Registry
	logger   *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		eventCh:  make(chan MetricEvent, bufferSize),
		metrics:  NewMetrics(),
		prom:     NewPrometheus(registry),
		registry: registry,
		logger:   logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Registry exposes the private registry the collector exports to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRouteSelected:
		c.prom.RouteDecisions.WithLabelValues(event.Upstream, "selected").Inc()
		c.metrics.RecordSelection(event.Upstream, event.Backend)

	case EventRouteFailed:
		c.prom.RouteDecisions.WithLabelValues(event.Upstream, event.Reason).Inc()
		c.metrics.RecordRoutingFailure(event.Reason)

	case EventHealthChanged:
		c.prom.BackendHealthy.WithLabelValues(event.Upstream, event.Backend).Set(gauge(event.Healthy))
		c.metrics.UpdateHealthStatus(event.Upstream, event.Backend, event.Healthy)

	case EventProbeCompleted:
		c.prom.HealthProbes.WithLabelValues(event.Upstream, event.Backend, result(event.Success)).Inc()
		c.prom.HealthProbeSeconds.WithLabelValues(event.Upstream).Observe(event.Duration.Seconds())
		c.prom.BackendHealthy.WithLabelValues(event.Upstream, event.Backend).Set(gauge(event.Success))
		c.metrics.RecordProbe(event.Upstream, event.Backend, event.Duration, event.Success)

	case EventConfigReloaded:
		c.prom.ConfigReloads.WithLabelValues(result(event.Success)).Inc()
		if event.Success {
			// Series of removed backends disappear; the next probes repopulate the rest.
			c.prom.BackendHealthy.Reset()
		}
		c.metrics.RecordReload(event.Success)

	default:
		c.logger.Debug("Ignoring unknown metric event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
