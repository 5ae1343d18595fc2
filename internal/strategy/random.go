package strategy

import (
	"math/rand/v2"

	"github.com/angeloszaimis/edge-router/internal/backend"
)

type randomStrategy struct{}

func (r *randomStrategy) SelectBackend(backends []*backend.Backend) *backend.Backend {
	if len(backends) == 0 {
		return nil
	}

	index := rand.IntN(len(backends))
	return backends[index]
}

func (r *randomStrategy) Name() string {
	return Random
}

func NewRandomStrategy() Strategy {
	return &randomStrategy{}
}
