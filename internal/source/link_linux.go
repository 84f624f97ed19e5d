//go:build linux

package source

import (
	"log/slog"

	"github.com/vishvananda/netlink"
)

// enrichLink fills MTU and operational state from rtnetlink.
func enrichLink(d *Device) {
	link, err := netlink.LinkByName(d.Name)
	if err != nil {
		// pcap also lists pseudo devices such as "any" that have no link.
		slog.Debug("no netlink attributes for device", "interface", d.Name, "error", err)
		return
	}
	attrs := link.Attrs()
	d.MTU = attrs.MTU
	d.State = attrs.OperState.String()
}
