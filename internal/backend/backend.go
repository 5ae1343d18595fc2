package backend

import "sync/atomic"

// Backend is one address of an upstream group.
type Backend struct {
	address  string
	healthy  atomic.Bool
	failures atomic.Uint32
}

// New creates a Backend for the given host:port address.
// The backend starts in a healthy state.
func New(address string) *Backend {
	b := &Backend{address: address}
	b.healthy.Store(true)
	return b
}

// Address returns the backend host:port.
func (b *Backend) Address() string {
	return b.address
}

// IsHealthy returns true if the backend may receive traffic.
func (b *Backend) IsHealthy() bool {
	return b.healthy.Load()
}

// SetHealthy updates the backend's health status.
// Returns true if the status changed, false if it was already in that state.
func (b *Backend) SetHealthy(healthy bool) (changed bool) {
	return b.healthy.Swap(healthy) != healthy
}

// RecordProbe stores the outcome of a health probe. A success resets the
// failure counter; a failure increments it. The health flag follows the
// outcome of the latest probe. Returns true if the health flag changed.
func (b *Backend) RecordProbe(success bool) (changed bool) {
	if success {
		b.failures.Store(0)
	} else {
		b.failures.Add(1)
	}
	return b.SetHealthy(success)
}

// Failures returns the number of consecutive failed probes.
func (b *Backend) Failures() uint32 {
	return b.failures.Load()
}

// CopyState copies the health flag and failure counter from other.
func (b *Backend) CopyState(other *Backend) {
	b.healthy.Store(other.healthy.Load())
	b.failures.Store(other.failures.Load())
}
