package healthcheck

import (
	"context"
	"net"
)

// Prober checks whether a single backend address is reachable.
type Prober interface {
	Probe(ctx context.Context, address string) error
}

// TCPProber succeeds when a TCP connection to the address can be opened.
type TCPProber struct {
	dialer net.Dialer
}

func (p *TCPProber) Probe(ctx context.Context, address string) error {
	conn, err := p.dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}
	return conn.Close()
}
