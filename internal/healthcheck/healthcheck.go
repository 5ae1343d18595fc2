package healthcheck

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/edge-router/config"
	"github.com/angeloszaimis/edge-router/internal/backend"
	"github.com/angeloszaimis/edge-router/internal/loadbalancer"
	"github.com/angeloszaimis/edge-router/internal/metrics"
)

// Source supplies the active configuration snapshot.
type Source interface {
	Get() *config.Snapshot
}

type Checker struct {
	source      Source
	prober      Prober
	interval    time.Duration
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
	events      chan<- metrics.MetricEvent
}

type Option func(*Checker)

func WithProber(p Prober) Option {
	return func(c *Checker) {
		c.prober = p
	}
}

// WithInterval sets how often the checker wakes up.
func WithInterval(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithTimeout bounds each probe.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithConcurrency limits how many probes run at once.
func WithConcurrency(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

func WithEvents(ch chan<- metrics.MetricEvent) Option {
	return func(c *Checker) {
		c.events = ch
	}
}

func NewChecker(source Source, opts ...Option) *Checker {
	c := &Checker{
		source:      source,
		prober:      &TCPProber{},
		interval:    config.DefaultHealthCheckInterval,
		timeout:     config.DefaultProbeTimeout,
		concurrency: config.DefaultProbeConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run probes backends on every tick until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("Health checker started", slog.Duration("interval", c.interval))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Health checker stopped")
			return

		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick runs one probe round against the active snapshot and waits for it to
// finish. It returns the number of probes performed.
func (c *Checker) Tick(ctx context.Context) int {
	snap := c.source.Get()
	if snap == nil || snap.Routes == nil {
		return 0
	}

	var g errgroup.Group
	g.SetLimit(c.concurrency)

	probes := 0
	for _, lb := range snap.Routes.Balancers() {
		if !lb.ProbeDue() {
			continue
		}
		for _, b := range lb.Backends() {
			probes++
			g.Go(func() error {
				c.probe(ctx, lb, b)
				return nil
			})
		}
	}

	_ = g.Wait()
	return probes
}

func (c *Checker) probe(ctx context.Context, lb *loadbalancer.LoadBalancer, b *backend.Backend) {
	// An in-flight probe finishes even when shutdown begins.
	probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	start := time.Now()
	err := c.prober.Probe(probeCtx, b.Address())
	elapsed := time.Since(start)

	healthy := err == nil
	changed := b.RecordProbe(healthy)

	metrics.Emit(c.events, metrics.MetricEvent{
		Type:     metrics.EventProbeCompleted,
		Upstream: lb.Name(),
		Backend:  b.Address(),
		Duration: elapsed,
		Success:  healthy,
	})

	if !changed {
		return
	}

	if healthy {
		c.logger.Info("Backend is back up",
			slog.String("upstream", lb.Name()),
			slog.String("backend", b.Address()))
	} else {
		c.logger.Warn("Backend is down",
			slog.String("upstream", lb.Name()),
			slog.String("backend", b.Address()),
			slog.Uint64("failures", uint64(b.Failures())),
			slog.Any("err", err))
	}

	metrics.Emit(c.events, metrics.MetricEvent{
		Type:     metrics.EventHealthChanged,
		Upstream: lb.Name(),
		Backend:  b.Address(),
		Healthy:  healthy,
	})
}
