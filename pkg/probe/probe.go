// Package probe discovers the host name and LAN-facing address using only
// local OS facilities.
package probe

import (
	"net"
	"os"

	cblog "github.com/charmbracelet/log"
)

const (
	// Unavailable is reported for any value the probe could not determine.
	Unavailable = "N/A"

	// DefaultTarget is dialed over UDP to make the OS pick the outbound
	// interface. Dialing a datagram socket sends no packets.
	DefaultTarget = "8.8.8.8:1"
)

// HostIdentity is the local half of a report.
type HostIdentity struct {
	Hostname string `json:"hostname"`
	LocalIP  string `json:"localIP"`
}

// Prober determines the HostIdentity. The function fields default to the os
// and net package implementations.
type Prober struct {
	Target     string
	Hostname   func() (string, error)
	Dial       func(network, address string) (net.Conn, error)
	LookupHost func(host string) ([]string, error)
	Logger     *cblog.Logger
}

// New creates a Prober that dials target to find the LAN address.
func New(target string, logger *cblog.Logger) *Prober {
	if target == "" {
		target = DefaultTarget
	}
	if logger == nil {
		logger = cblog.Default()
	}
	return &Prober{
		Target:     target,
		Hostname:   os.Hostname,
		Dial:       net.Dial,
		LookupHost: net.LookupHost,
		Logger:     logger,
	}
}

// Probe never fails. Values it cannot determine are reported as Unavailable.
func (p *Prober) Probe() HostIdentity {
	hostname, err := p.Hostname()
	if err != nil {
		p.Logger.Errorf("error retrieving local network info: %s", err)
		return HostIdentity{Hostname: Unavailable, LocalIP: Unavailable}
	}

	ip, err := p.interfaceIP()
	if err != nil {
		p.Logger.Debugf("falling back to host name resolution: %s", err)
		ip, err = p.resolveHostname(hostname)
		if err != nil {
			p.Logger.Errorf("error retrieving local network info: %s", err)
			return HostIdentity{Hostname: hostname, LocalIP: Unavailable}
		}
	}

	return HostIdentity{Hostname: hostname, LocalIP: ip}
}

// interfaceIP returns the local address of a UDP socket "connected" to the
// probe target.
func (p *Prober) interfaceIP() (string, error) {
	conn, err := p.Dial("udp4", p.Target)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	host, _, err := net.SplitHostPort(conn.LocalAddr().String())
	if err != nil {
		return "", err
	}
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		return "", &net.AddrError{Err: "no usable local address", Addr: host}
	}
	return host, nil
}

// resolveHostname returns the first IPv4 address of hostname, or the first
// address of any family. May yield the loopback address.
func (p *Prober) resolveHostname(hostname string) (string, error) {
	addrs, err := p.LookupHost(hostname)
	if err != nil {
		return "", err
	}
	for _, addr := range addrs {
		if ip := net.ParseIP(addr); ip != nil && ip.To4() != nil {
			return addr, nil
		}
	}
	if len(addrs) == 0 {
		return "", &net.DNSError{Err: "no addresses", Name: hostname}
	}
	return addrs[0], nil
}
