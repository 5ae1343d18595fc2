package loadbalancer

import (
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/angeloszaimis/edge-router/internal/backend"
	"github.com/angeloszaimis/edge-router/internal/strategy"
)

// MaxProbeIter bounds the candidate inspections of a single Select call.
const MaxProbeIter = 32

// DefaultProbeFrequency is how often an upstream is actually probed when the
// health checker offers a probe opportunity.
const DefaultProbeFrequency = 10 * time.Second

var ErrNoBackends = errors.New("upstream has no backends")

type LoadBalancer struct {
	name         string
	backends     []*backend.Backend
	byAddress    map[string]*backend.Backend
	strategy     strategy.Strategy
	probeLimiter *rate.Limiter
}

type Option func(*LoadBalancer)

// WithStrategy overrides the default round robin strategy.
func WithStrategy(s strategy.Strategy) Option {
	return func(lb *LoadBalancer) {
		lb.strategy = s
	}
}

// WithProbeFrequency sets the minimum spacing between two probe rounds.
func WithProbeFrequency(d time.Duration) Option {
	return func(lb *LoadBalancer) {
		if d > 0 {
			lb.probeLimiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// New builds a LoadBalancer for the named upstream. Repeated addresses are
// collapsed, keeping the first occurrence's position.
func New(name string, addresses []string, opts ...Option) (*LoadBalancer, error) {
	if len(addresses) == 0 {
		return nil, ErrNoBackends
	}

	lb := &LoadBalancer{
		name:         name,
		backends:     make([]*backend.Backend, 0, len(addresses)),
		byAddress:    make(map[string]*backend.Backend, len(addresses)),
		strategy:     strategy.NewRoundRobinStrategy(),
		probeLimiter: rate.NewLimiter(rate.Every(DefaultProbeFrequency), 1),
	}

	for _, addr := range addresses {
		if _, dup := lb.byAddress[addr]; dup {
			continue
		}
		b := backend.New(addr)
		lb.backends = append(lb.backends, b)
		lb.byAddress[addr] = b
	}

	for _, opt := range opts {
		opt(lb)
	}

	return lb, nil
}

// Name returns the upstream name.
func (lb *LoadBalancer) Name() string {
	return lb.name
}

// Policy returns the strategy name.
func (lb *LoadBalancer) Policy() string {
	return lb.strategy.Name()
}

// Select returns a healthy backend, or false when none was found within
// MaxProbeIter inspections.
func (lb *LoadBalancer) Select() (*backend.Backend, bool) {
	for i := 0; i < MaxProbeIter; i++ {
		candidate := lb.strategy.SelectBackend(lb.backends)
		if candidate == nil {
			return nil, false
		}
		if candidate.IsHealthy() {
			return candidate, true
		}
	}

	return nil, false
}

// SetHealth flips the health flag of the backend with the given address.
// It reports whether the address belongs to this upstream.
func (lb *LoadBalancer) SetHealth(address string, healthy bool) bool {
	b, ok := lb.byAddress[address]
	if !ok {
		return false
	}
	b.SetHealthy(healthy)
	return true
}

// Backend looks up a backend by address.
func (lb *LoadBalancer) Backend(address string) (*backend.Backend, bool) {
	b, ok := lb.byAddress[address]
	return b, ok
}

// Backends returns the backends in declaration order. The slice is a copy;
// the backends are shared.
func (lb *LoadBalancer) Backends() []*backend.Backend {
	out := make([]*backend.Backend, len(lb.backends))
	copy(out, lb.backends)
	return out
}

// Addresses returns the backend addresses in declaration order.
func (lb *LoadBalancer) Addresses() []string {
	out := make([]string, len(lb.backends))
	for i, b := range lb.backends {
		out[i] = b.Address()
	}
	return out
}

// HealthyCount returns how many backends are currently marked healthy.
func (lb *LoadBalancer) HealthyCount() int {
	n := 0
	for _, b := range lb.backends {
		if b.IsHealthy() {
			n++
		}
	}
	return n
}

// ProbeDue reports whether a probe round may run now. It consumes the
// opportunity, so only the health checker should call it.
func (lb *LoadBalancer) ProbeDue() bool {
	return lb.probeLimiter.Allow()
}

// InheritHealth copies health state from a previous generation of the same
// upstream for every address present in both. Addresses new to this
// generation keep their initial healthy state.
func (lb *LoadBalancer) InheritHealth(prev *LoadBalancer) int {
	if prev == nil {
		return 0
	}

	inherited := 0
	for addr, b := range lb.byAddress {
		if old, ok := prev.byAddress[addr]; ok {
			b.CopyState(old)
			inherited++
		}
	}

	return inherited
}
