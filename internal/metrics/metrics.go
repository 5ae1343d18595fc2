package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxProbeSamples = 1000

type Metrics struct {
	mutex          sync.RWMutex
	selections     map[string]int64
	failures       map[string]int64
	probeTimes     map[string][]time.Duration
	probeFailures  map[string]int64
	probes         map[string]int64
	healthStatus   map[string]bool
	identity       map[string][2]string
	reloads        int64
	reloadFailures int64
	startTime      time.Time
}

type Snapshot struct {
	TotalDecisions int64                     `json:"total_decisions"`
	Uptime         time.Duration             `json:"uptime"`
	Backends       map[string]BackendMetrics `json:"backends"`
	Failures       map[string]int64          `json:"failures"`
	Reloads        int64                     `json:"reloads"`
	ReloadFailures int64                     `json:"reload_failures"`
}

// BackendMetrics is keyed by BackendKey in Snapshot.Backends. The same
// address in two upstreams is reported twice.
type BackendMetrics struct {
	Upstream      string        `json:"upstream"`
	Address       string        `json:"address"`
	Selections    int64         `json:"selections"`
	Healthy       bool          `json:"healthy"`
	Probes        int64         `json:"probes"`
	ProbeFailures int64         `json:"probe_failures"`
	AvgProbe      time.Duration `json:"avg_probe"`
	P50Probe      time.Duration `json:"p50_probe"`
	P95Probe      time.Duration `json:"p95_probe"`
	P99Probe      time.Duration `json:"p99_probe"`
}

// BackendKey identifies a backend within its upstream.
func BackendKey(upstream, address string) string {
	if upstream == "" {
		return address
	}
	return upstream + "/" + address
}

func (m *Metrics) RecordSelection(upstream, backend string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	key := BackendKey(upstream, backend)
	m.selections[key]++
	m.track(key, upstream, backend)
}

// RecordRoutingFailure counts a failed routing decision by reason.
func (m *Metrics) RecordRoutingFailure(reason string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.failures[reason]++
}

// RecordProbe stores a probe duration and outcome. Only the most recent
// maxProbeSamples durations per backend are kept.
func (m *Metrics) RecordProbe(upstream, backend string, duration time.Duration, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := BackendKey(upstream, backend)
	m.track(key, upstream, backend)

	m.probeTimes[key] = append(m.probeTimes[key], duration)
	if len(m.probeTimes[key]) > maxProbeSamples {
		m.probeTimes[key] = m.probeTimes[key][1:]
	}

	m.probes[key]++
	if !healthy {
		m.probeFailures[key]++
	}
	m.healthStatus[key] = healthy
}

func (m *Metrics) UpdateHealthStatus(upstream, backend string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	key := BackendKey(upstream, backend)
	m.track(key, upstream, backend)
	m.healthStatus[key] = healthy
}

// track remembers the parts of key. Callers hold the write lock.
func (m *Metrics) track(key, upstream, address string) {
	if _, ok := m.identity[key]; !ok {
		m.identity[key] = [2]string{upstream, address}
	}
}

func (m *Metrics) RecordReload(success bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if success {
		m.reloads++
	} else {
		m.reloadFailures++
	}
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:         time.Since(m.startTime),
		Backends:       make(map[string]BackendMetrics),
		Failures:       make(map[string]int64, len(m.failures)),
		Reloads:        m.reloads,
		ReloadFailures: m.reloadFailures,
	}

	for reason, n := range m.failures {
		snap.Failures[reason] = n
	}

	for backend, id := range m.identity {
		snap.TotalDecisions += m.selections[backend]

		bm := BackendMetrics{
			Upstream:      id[0],
			Address:       id[1],
			Selections:    m.selections[backend],
			Healthy:       m.healthStatus[backend],
			Probes:        m.probes[backend],
			ProbeFailures: m.probeFailures[backend],
		}

		durations := m.probeTimes[backend]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			bm.AvgProbe = average(sorted)
			bm.P50Probe = percentile(sorted, 0.50)
			bm.P95Probe = percentile(sorted, 0.95)
			bm.P99Probe = percentile(sorted, 0.99)
		}

		snap.Backends[backend] = bm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		selections:    make(map[string]int64),
		failures:      make(map[string]int64),
		probeTimes:    make(map[string][]time.Duration),
		probeFailures: make(map[string]int64),
		probes:        make(map[string]int64),
		healthStatus:  make(map[string]bool),
		identity:      make(map[string][2]string),
		startTime:     time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
