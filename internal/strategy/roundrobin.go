package strategy

import (
	"sync/atomic"

	"github.com/angeloszaimis/edge-router/internal/backend"
)

// roundRobinStrategy cycles through the list with a relaxed shared cursor.
// Concurrent callers may occasionally observe a skipped or repeated backend;
// only that every call makes progress is guaranteed.
type roundRobinStrategy struct {
	current atomic.Uint64
}

func (rb *roundRobinStrategy) SelectBackend(backends []*backend.Backend) *backend.Backend {
	if len(backends) == 0 {
		return nil
	}

	n := rb.current.Add(1)

	index := (n - 1) % uint64(len(backends))

	return backends[index]
}

func (rb *roundRobinStrategy) Name() string {
	return RoundRobin
}

func NewRoundRobinStrategy() Strategy {
	return &roundRobinStrategy{}
}
