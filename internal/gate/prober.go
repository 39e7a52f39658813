package gate

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"

	"voice-message-pipeline/internal/observability/logging"
)

// Prober is the default Connectivity implementation. Link state comes from
// interface enumeration; internet state from a short TCP dial against one
// of the probe addresses.
type Prober struct {
	// ProbeAddrs are host:port endpoints tried in order until one connects.
	ProbeAddrs []string
	// DialTimeout bounds each probe dial.
	DialTimeout time.Duration

	log    zerolog.Logger
	dialer func(ctx context.Context, network, addr string) (net.Conn, error)
	ifaces func() ([]net.Interface, error)
}

// NewProber creates a prober with default probe endpoints.
func NewProber() *Prober {
	return &Prober{
		ProbeAddrs:  []string{"1.1.1.1:443", "8.8.8.8:443"},
		DialTimeout: 2 * time.Second,
		log:         logging.WithComponent("gate"),
		dialer:      (&net.Dialer{}).DialContext,
		ifaces:      net.Interfaces,
	}
}

// Check returns the current point-in-time reachability.
func (p *Prober) Check(ctx context.Context) (Reachability, error) {
	up, err := p.linkUp()
	if err != nil {
		return ReachabilityNone, err
	}
	if !up {
		return ReachabilityNone, nil
	}

	for _, addr := range p.ProbeAddrs {
		dctx, cancel := context.WithTimeout(ctx, p.DialTimeout)
		conn, err := p.dialer(dctx, "tcp", addr)
		cancel()
		if err == nil {
			conn.Close()
			return ReachabilityInternet, nil
		}
		p.log.Debug().Str("addr", addr).Err(err).Msg("Probe dial failed")
		if ctx.Err() != nil {
			return ReachabilityLinkOnly, ctx.Err()
		}
	}
	return ReachabilityLinkOnly, nil
}

// linkUp reports whether any non-loopback interface is up.
func (p *Prober) linkUp() (bool, error) {
	ifaces, err := p.ifaces()
	if err != nil {
		return false, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp != 0 {
			return true, nil
		}
	}
	return false, nil
}

// Static implementations used by tests and local runs.

// StaticMicrophone always reports a fixed permission status.
type StaticMicrophone struct {
	Result PermissionStatus
}

func (m StaticMicrophone) Status(ctx context.Context) (PermissionStatus, error) {
	return m.Result, nil
}

func (m StaticMicrophone) Request(ctx context.Context) (PermissionStatus, error) {
	return m.Result, nil
}

// StaticConnectivity always reports a fixed reachability.
type StaticConnectivity struct {
	Result Reachability
}

func (c StaticConnectivity) Check(ctx context.Context) (Reachability, error) {
	return c.Result, nil
}
