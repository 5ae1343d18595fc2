package strategy

import (
	"fmt"

	"github.com/angeloszaimis/edge-router/internal/backend"
)

const (
	RoundRobin = "round_robin"
	Random     = "random"
)

// Policies lists the accepted upstream policy names.
var Policies = []interface{}{RoundRobin, Random}

type Strategy interface {
	// SelectBackend returns the next candidate, or nil for an empty list.
	SelectBackend(backends []*backend.Backend) *backend.Backend
	Name() string
}

// New returns a fresh strategy for the named policy. An empty name selects
// round robin.
func New(policy string) (Strategy, error) {
	switch policy {
	case "", RoundRobin:
		return NewRoundRobinStrategy(), nil
	case Random:
		return NewRandomStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", policy)
	}
}
