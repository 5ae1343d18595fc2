package store

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/angeloszaimis/edge-router/config"
	"github.com/angeloszaimis/edge-router/internal/metrics"
)

// LoadFunc produces a fresh snapshot.
type LoadFunc func() (*config.Snapshot, error)

type Reloader struct {
	store  *Store
	load   LoadFunc
	logger *slog.Logger
	events chan<- metrics.MetricEvent
	mu     sync.Mutex
}

type ReloaderOption func(*Reloader)

func WithLogger(logger *slog.Logger) ReloaderOption {
	return func(r *Reloader) {
		r.logger = logger
	}
}

// WithEvents reports every reload attempt on ch.
func WithEvents(ch chan<- metrics.MetricEvent) ReloaderOption {
	return func(r *Reloader) {
		r.events = ch
	}
}

func NewReloader(store *Store, load LoadFunc, opts ...ReloaderOption) *Reloader {
	r := &Reloader{
		store:  store,
		load:   load,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reload replaces the active snapshot with a freshly loaded one. Backends
// present in both generations keep their health state. On error the active
// snapshot is left in place.
func (r *Reloader) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := r.load()
	if err != nil {
		r.logger.Error("Config reload failed, keeping active configuration", slog.Any("err", err))
		metrics.Emit(r.events, metrics.MetricEvent{Type: metrics.EventConfigReloaded, Success: false})
		return fmt.Errorf("reload config: %w", err)
	}

	inherited := 0
	if prev := r.store.Get(); prev != nil && prev.Routes != nil {
		inherited = next.Routes.InheritHealth(prev.Routes)
	}
	r.store.Update(next)

	r.logger.Info("Config reloaded",
		slog.Int("hosts", next.Routes.Len()),
		slog.Int("upstreams", next.Upstreams),
		slog.Int("inherited_backends", inherited),
	)
	metrics.Emit(r.events, metrics.MetricEvent{Type: metrics.EventConfigReloaded, Success: true})

	return nil
}
