package gate

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

type promptingMic struct {
	status    PermissionStatus
	requested bool
	after     PermissionStatus
}

func (m *promptingMic) Status(ctx context.Context) (PermissionStatus, error) {
	return m.status, nil
}

func (m *promptingMic) Request(ctx context.Context) (PermissionStatus, error) {
	m.requested = true
	return m.after, nil
}

func TestGate_AllowCapture_Granted(t *testing.T) {
	g := &Gate{Mic: StaticMicrophone{Result: PermissionGranted}}

	ok, err := g.AllowCapture(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected capture to be allowed")
	}
}

func TestGate_AllowCapture_Denied(t *testing.T) {
	g := &Gate{Mic: StaticMicrophone{Result: PermissionDenied}}

	ok, err := g.AllowCapture(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected capture to be blocked")
	}
}

func TestGate_AllowCapture_PromptsWhenUndetermined(t *testing.T) {
	mic := &promptingMic{status: PermissionUndetermined, after: PermissionGranted}
	g := &Gate{Mic: mic}

	ok, err := g.AllowCapture(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mic.requested {
		t.Error("expected Request to be called for undetermined status")
	}
	if !ok {
		t.Error("expected capture to be allowed after grant")
	}
}

func TestGate_AllowSubmit(t *testing.T) {
	tests := []struct {
		name  string
		reach Reachability
		want  bool
	}{
		{"internet", ReachabilityInternet, true},
		{"link only", ReachabilityLinkOnly, false},
		{"no link", ReachabilityNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Gate{Net: StaticConnectivity{Result: tt.reach}}
			ok, err := g.AllowSubmit(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.want {
				t.Errorf("expected %v, got %v", tt.want, ok)
			}
		})
	}
}

func TestProber_NoLink(t *testing.T) {
	p := NewProber()
	p.ifaces = func() ([]net.Interface, error) {
		return []net.Interface{{Flags: net.FlagLoopback | net.FlagUp}}, nil
	}

	r, err := p.Check(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != ReachabilityNone {
		t.Errorf("expected ReachabilityNone, got %v", r)
	}
}

func TestProber_LinkOnly(t *testing.T) {
	p := NewProber()
	p.DialTimeout = 50 * time.Millisecond
	p.ifaces = func() ([]net.Interface, error) {
		return []net.Interface{{Flags: net.FlagUp}}, nil
	}
	p.dialer = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}

	r, err := p.Check(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != ReachabilityLinkOnly {
		t.Errorf("expected ReachabilityLinkOnly, got %v", r)
	}
}

func TestProber_Internet(t *testing.T) {
	// Local listener stands in for the probe endpoint
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	p := NewProber()
	p.ProbeAddrs = []string{ln.Addr().String()}
	p.ifaces = func() ([]net.Interface, error) {
		return []net.Interface{{Flags: net.FlagUp}}, nil
	}

	r, err := p.Check(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != ReachabilityInternet {
		t.Errorf("expected ReachabilityInternet, got %v", r)
	}
}

func TestReachability_Strings(t *testing.T) {
	if ReachabilityNone.String() != "NONE" || ReachabilityLinkOnly.String() != "LINK_ONLY" || ReachabilityInternet.String() != "INTERNET" {
		t.Error("unexpected reachability string")
	}
	if PermissionGranted.String() != "GRANTED" || PermissionDenied.String() != "DENIED" {
		t.Error("unexpected permission string")
	}
}
