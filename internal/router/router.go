package router

import (
	"github.com/angeloszaimis/edge-router/config"
	"github.com/angeloszaimis/edge-router/internal/route"
)

// Source supplies the active configuration snapshot.
type Source interface {
	Get() *config.Snapshot
}

// Decision is the outcome of routing one request.
type Decision struct {
	Host           string `json:"host"`
	Port           uint16 `json:"port"`
	Upstream       string `json:"upstream"`
	BackendAddress string `json:"backend_address"`
	UseTLS         bool   `json:"use_tls"`
	CAFile         string `json:"ca_file,omitempty"`
}

type Router struct {
	source Source
}

func New(source Source) *Router {
	return &Router{source: source}
}

// Route picks a backend for hostname from the active snapshot. It takes no
// locks.
func (r *Router) Route(hostname string) (Decision, error) {
	host := route.NormalizeHost(hostname)

	snap := r.source.Get()
	if snap == nil || snap.Routes == nil {
		return Decision{}, &RoutingError{Err: ErrUnknownHost, Host: host}
	}

	entry, ok := snap.Routes.Lookup(host)
	if !ok {
		return Decision{}, &RoutingError{Err: ErrUnknownHost, Host: host}
	}

	b, ok := entry.Balancer.Select()
	if !ok {
		return Decision{}, &RoutingError{Err: ErrNoHealthyBackend, Host: host, Upstream: entry.Upstream()}
	}

	return Decision{
		Host:           host,
		Upstream:       entry.Upstream(),
		BackendAddress: b.Address(),
		UseTLS:         entry.TLS,
		CAFile:         entry.CAFile,
	}, nil
}

// Decide extracts the destination from request metadata and routes it.
func (r *Router) Decide(hostHeader, authority, scheme string) (Decision, error) {
	host, port, err := ExtractHost(hostHeader, authority, scheme)
	if err != nil {
		return Decision{}, err
	}

	d, err := r.Route(host)
	if err != nil {
		return Decision{}, err
	}

	d.Port = port
	return d, nil
}
