package store

import (
	"sync/atomic"

	"github.com/angeloszaimis/edge-router/config"
)

type Store struct {
	current atomic.Pointer[config.Snapshot]
}

func New(initial *config.Snapshot) *Store {
	s := &Store{}
	s.current.Store(initial)
	return s
}

// Get returns the active snapshot. It never blocks.
func (s *Store) Get() *config.Snapshot {
	return s.current.Load()
}

// Update publishes next. A nil snapshot is ignored.
func (s *Store) Update(next *config.Snapshot) {
	if next == nil {
		return
	}
	s.current.Store(next)
}
