// Package report renders the host and network identity as text.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/0x4d31/netreport/pkg/lookup"
	"github.com/0x4d31/netreport/pkg/probe"
)

const (
	rule  = "--------------------------------------------------"
	title = "        Network and Host Information Utility        "
)

// Report is everything gathered during one run.
type Report struct {
	Host    probe.HostIdentity `json:"host"`
	Network lookup.Result      `json:"network"`
}

// Write renders r in the fixed report layout.
func Write(w io.Writer, r Report) error {
	var b strings.Builder

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, title)
	fmt.Fprintln(&b, rule)

	fmt.Fprintln(&b, "\n[LOCAL NETWORK INFORMATION (No external calls)]")
	fmt.Fprintf(&b, "Desktop Name (Hostname): %s\n", r.Host.Hostname)
	fmt.Fprintf(&b, "Local IP Address (LAN):  %s\n", r.Host.LocalIP)

	fmt.Fprintln(&b, "\n[PUBLIC NETWORK INFORMATION (Requires external calls)]")
	fmt.Fprintf(&b, "Public IP Address (WAN): %s\n", r.Network.PublicIP)
	fmt.Fprintf(&b, "Estimated Location:      %s\n", r.Network.Location)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "\n[Image of network topology]")

	_, err := io.WriteString(w, b.String())
	return err
}
