package route

import (
	"sort"
	"strings"

	"github.com/angeloszaimis/edge-router/internal/loadbalancer"
)

// Entry binds a hostname to an upstream. Entries of hostnames that name the
// same upstream share one LoadBalancer.
type Entry struct {
	Balancer *loadbalancer.LoadBalancer
	// TLS reports whether the connection to the upstream must be encrypted.
	TLS bool
	// CAFile verifies the upstream certificate when TLS is set. Empty means
	// system roots.
	CAFile string
}

// Upstream returns the name of the upstream group.
func (e *Entry) Upstream() string {
	return e.Balancer.Name()
}

type Table struct {
	entries   map[string]*Entry
	balancers []*loadbalancer.LoadBalancer
}

// NewTable copies entries into a new Table. Keys are normalized with
// NormalizeHost.
func NewTable(entries map[string]*Entry) *Table {
	t := &Table{entries: make(map[string]*Entry, len(entries))}

	seen := make(map[*loadbalancer.LoadBalancer]bool)
	for host, e := range entries {
		t.entries[NormalizeHost(host)] = e
		if !seen[e.Balancer] {
			seen[e.Balancer] = true
			t.balancers = append(t.balancers, e.Balancer)
		}
	}
	sort.Slice(t.balancers, func(i, j int) bool {
		return t.balancers[i].Name() < t.balancers[j].Name()
	})

	return t
}

// Lookup returns the entry for an already normalized hostname.
func (t *Table) Lookup(host string) (*Entry, bool) {
	e, ok := t.entries[host]
	return e, ok
}

// Len returns the number of hostnames.
func (t *Table) Len() int {
	return len(t.entries)
}

// Hosts returns the hostnames in lexical order.
func (t *Table) Hosts() []string {
	hosts := make([]string, 0, len(t.entries))
	for h := range t.entries {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// Balancers returns every distinct LoadBalancer reachable from the table,
// ordered by upstream name.
func (t *Table) Balancers() []*loadbalancer.LoadBalancer {
	out := make([]*loadbalancer.LoadBalancer, len(t.balancers))
	copy(out, t.balancers)
	return out
}

// Balancer returns the LoadBalancer of the named upstream.
func (t *Table) Balancer(upstream string) (*loadbalancer.LoadBalancer, bool) {
	for _, lb := range t.balancers {
		if lb.Name() == upstream {
			return lb, true
		}
	}
	return nil, false
}

// InheritHealth copies backend health from prev for every upstream present
// in both tables. Returns the number of backends that kept their state.
func (t *Table) InheritHealth(prev *Table) int {
	if prev == nil {
		return 0
	}

	n := 0
	for _, lb := range t.balancers {
		if old, ok := prev.Balancer(lb.Name()); ok {
			n += lb.InheritHealth(old)
		}
	}
	return n
}

// NormalizeHost lowercases a hostname and strips one trailing dot.
func NormalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}
