package probe

import (
	"errors"
	"io"
	"net"
	"testing"

	cblog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

// fakeConn only implements what the probe touches.
type fakeConn struct {
	net.Conn
	local  net.Addr
	closed int
}

func (c *fakeConn) LocalAddr() net.Addr { return c.local }
func (c *fakeConn) Close() error {
	c.closed++
	return nil
}

type stringAddr string

func (a stringAddr) Network() string { return "udp" }
func (a stringAddr) String() string  { return string(a) }

var errBoom = errors.New("boom")

func newTestProber() *Prober {
	p := New("", cblog.New(io.Discard))
	p.Hostname = func() (string, error) { return "workstation", nil }
	p.LookupHost = func(string) ([]string, error) { return nil, errBoom }
	return p
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name       string
		hostname   func() (string, error)
		local      net.Addr
		dialErr    error
		lookupHost func(string) ([]string, error)
		want       HostIdentity
		wantClosed bool
	}{
		{
			name:       "udpLocalAddress",
			local:      &net.UDPAddr{IP: net.ParseIP("192.168.1.20"), Port: 51000},
			want:       HostIdentity{Hostname: "workstation", LocalIP: "192.168.1.20"},
			wantClosed: true,
		},
		{
			name:       "hostnameFailure",
			hostname:   func() (string, error) { return "", errBoom },
			want:       HostIdentity{Hostname: Unavailable, LocalIP: Unavailable},
			wantClosed: false,
		},
		{
			name:       "dialFailureFallsBackToLookup",
			dialErr:    errBoom,
			lookupHost: func(string) ([]string, error) { return []string{"::1", "127.0.1.1"}, nil },
			want:       HostIdentity{Hostname: "workstation", LocalIP: "127.0.1.1"},
		},
		{
			name:       "fallbackReturnsNonIPv4",
			dialErr:    errBoom,
			lookupHost: func(string) ([]string, error) { return []string{"fe80::1"}, nil },
			want:       HostIdentity{Hostname: "workstation", LocalIP: "fe80::1"},
		},
		{
			name:    "dialAndLookupFailure",
			dialErr: errBoom,
			want:    HostIdentity{Hostname: "workstation", LocalIP: Unavailable},
		},
		{
			name:       "emptyLookupResult",
			dialErr:    errBoom,
			lookupHost: func(string) ([]string, error) { return nil, nil },
			want:       HostIdentity{Hostname: "workstation", LocalIP: Unavailable},
		},
		{
			name:       "unparsableLocalAddressClosesSocket",
			local:      stringAddr("pipe"),
			want:       HostIdentity{Hostname: "workstation", LocalIP: Unavailable},
			wantClosed: true,
		},
		{
			name:       "unspecifiedLocalAddressClosesSocket",
			local:      &net.UDPAddr{IP: net.IPv4zero},
			lookupHost: func(string) ([]string, error) { return []string{"10.0.0.7"}, nil },
			want:       HostIdentity{Hostname: "workstation", LocalIP: "10.0.0.7"},
			wantClosed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProber()
			if tt.hostname != nil {
				p.Hostname = tt.hostname
			}
			if tt.lookupHost != nil {
				p.LookupHost = tt.lookupHost
			}

			conn := &fakeConn{local: tt.local}
			p.Dial = func(network, address string) (net.Conn, error) {
				assert.Equal(t, "udp4", network)
				assert.Equal(t, DefaultTarget, address)
				if tt.dialErr != nil {
					return nil, tt.dialErr
				}
				return conn, nil
			}

			got := p.Probe()
			assert.Equal(t, tt.want, got)
			if tt.wantClosed {
				assert.Equal(t, 1, conn.closed)
			}
		})
	}
}

func TestProbeLoopbackTarget(t *testing.T) {
	p := New("127.0.0.1:1", cblog.New(io.Discard))
	p.Hostname = func() (string, error) { return "workstation", nil }

	got := p.Probe()
	assert.Equal(t, "workstation", got.Hostname)
	assert.Equal(t, "127.0.0.1", got.LocalIP)
}
