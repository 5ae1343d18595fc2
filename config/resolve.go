package config

import (
	"errors"
	"os"
	"time"

	"github.com/angeloszaimis/edge-router/internal/loadbalancer"
	"github.com/angeloszaimis/edge-router/internal/route"
	"github.com/angeloszaimis/edge-router/internal/strategy"
)

// TLSFiles are listener TLS material paths that existed at resolution time.
type TLSFiles struct {
	Cert string
	Key  string
	CA   string
}

type HealthCheckSettings struct {
	Interval    time.Duration
	Frequency   time.Duration
	Timeout     time.Duration
	Concurrency int
}

type GlobalSettings struct {
	Port         uint16
	TLS          *TLSFiles
	AdminAddress string
	LogLevel     string
	Environment  string
	HealthCheck  HealthCheckSettings
}

// Snapshot is one resolved configuration generation. It is never modified
// after Resolve returns, apart from backend health flags reachable through
// Routes.
type Snapshot struct {
	Global    GlobalSettings
	Routes    *route.Table
	Upstreams int
	LoadedAt  time.Time
}

// Resolve validates raw and builds a Snapshot. Checks run in a fixed order
// and the first failure is returned: listener TLS files, then the upstream
// catalogue, then each server rule in document order. On failure no route
// table is produced.
func Resolve(raw *RawConfig) (*Snapshot, error) {
	global, err := resolveGlobal(raw.Global)
	if err != nil {
		return nil, err
	}

	upstreams := make(map[string]UpstreamDefinition, len(raw.Upstreams))
	for _, u := range raw.Upstreams {
		if len(u.Servers) == 0 {
			return nil, invalid(ErrEmptyBackendList, u.Name)
		}
		upstreams[u.Name] = u
	}

	balancers := make(map[string]*loadbalancer.LoadBalancer)
	entries := make(map[string]*route.Entry)
	for _, rule := range raw.Servers {
		def, ok := upstreams[rule.Upstream]
		if !ok {
			return nil, invalid(ErrMissingUpstream, rule.Upstream)
		}

		entry := &route.Entry{TLS: rule.UseTLS()}
		if entry.TLS && rule.UpstreamCA != "" {
			if !fileExists(rule.UpstreamCA) {
				return nil, invalid(ErrMissingCaFile, rule.UpstreamCA)
			}
			entry.CAFile = rule.UpstreamCA
		}

		lb, ok := balancers[def.Name]
		if !ok {
			lb, err = newBalancer(def, global.HealthCheck.Frequency)
			if err != nil {
				return nil, err
			}
			balancers[def.Name] = lb
		}
		entry.Balancer = lb

		// A hostname named by several rules is bound to the last one.
		for _, name := range rule.ServerName {
			entries[route.NormalizeHost(name)] = entry
		}
	}

	// Upstreams whose hostnames were all taken by later rules are unreachable
	// and therefore not counted.
	table := route.NewTable(entries)
	return &Snapshot{
		Global:    global,
		Routes:    table,
		Upstreams: len(table.Balancers()),
		LoadedAt:  time.Now(),
	}, nil
}

// LoadSnapshot reads, parses and resolves the file at path.
func LoadSnapshot(path string) (*Snapshot, error) {
	raw, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Resolve(raw)
}

func resolveGlobal(g GlobalConfig) (GlobalSettings, error) {
	settings := GlobalSettings{
		Port:         g.Port,
		AdminAddress: orDefault(g.AdminAddress, DefaultAdminAddress),
		LogLevel:     orDefault(g.LogLevel, LogLevelInfo),
		Environment:  orDefault(g.Environment, EnvDev),
		HealthCheck: HealthCheckSettings{
			Interval:    orDefault(g.HealthCheck.Interval, DefaultHealthCheckInterval),
			Frequency:   orDefault(g.HealthCheck.Frequency, DefaultProbeFrequency),
			Timeout:     orDefault(g.HealthCheck.Timeout, DefaultProbeTimeout),
			Concurrency: orDefault(g.HealthCheck.Concurrency, DefaultProbeConcurrency),
		},
	}

	if g.TLS == nil {
		return settings, nil
	}

	if !fileExists(g.TLS.Cert) {
		return GlobalSettings{}, invalid(ErrMissingCertFile, g.TLS.Cert)
	}
	if !fileExists(g.TLS.Key) {
		return GlobalSettings{}, invalid(ErrMissingKeyFile, g.TLS.Key)
	}
	if g.TLS.CA != "" && !fileExists(g.TLS.CA) {
		return GlobalSettings{}, invalid(ErrMissingCaFile, g.TLS.CA)
	}

	settings.TLS = &TLSFiles{Cert: g.TLS.Cert, Key: g.TLS.Key, CA: g.TLS.CA}
	return settings, nil
}

func newBalancer(def UpstreamDefinition, frequency time.Duration) (*loadbalancer.LoadBalancer, error) {
	strat, err := strategy.New(def.Policy)
	if err != nil {
		return nil, invalid(ErrUnknownPolicy, def.Name)
	}

	lb, err := loadbalancer.New(def.Name, def.Servers,
		loadbalancer.WithStrategy(strat),
		loadbalancer.WithProbeFrequency(frequency),
	)
	if errors.Is(err, loadbalancer.ErrNoBackends) {
		return nil, invalid(ErrEmptyBackendList, def.Name)
	}
	return lb, err
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
