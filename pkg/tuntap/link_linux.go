//go:build linux

package tuntap

import (
	"fmt"
	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
	"net"
)

// ConfigureLink applies link settings to an existing interface
func ConfigureLink(name string, opts ...func(*LinkOptions)) error {
	linkOpts := LinkOptions{}
	for _, o := range opts {
		o(&linkOpts)
	}
	nl, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", name, err)
	}
	if linkOpts.mtu > 0 && nl.Attrs().MTU != linkOpts.mtu {
		err = netlink.LinkSetMTU(nl, linkOpts.mtu)
		if err != nil {
			return fmt.Errorf("error setting %s MTU to %d: %w", name, linkOpts.mtu, err)
		}
		log.Debugf("set %s MTU to %d", name, linkOpts.mtu)
	}
	if linkOpts.up && nl.Attrs().Flags&net.FlagUp == 0 {
		err = netlink.LinkSetUp(nl)
		if err != nil {
			return fmt.Errorf("error activating %s: %w", name, err)
		}
		log.Debugf("set %s up", name)
	}
	return nil
}

func isDefaultRoute(r netlink.Route) bool {
	if r.Dst == nil {
		return true
	}
	ones, _ := r.Dst.Mask.Size()
	return ones == 0 && r.Dst.IP.IsUnspecified()
}

// DefaultInterfaceName returns the name of the interface carrying the IPv4 default route
func DefaultInterfaceName() (string, error) {
	routes, err := netlink.RouteList(nil, netlink.FAMILY_V4)
	if err != nil {
		return "", fmt.Errorf("error listing routes: %w", err)
	}
	for _, r := range routes {
		if !isDefaultRoute(r) || r.LinkIndex == 0 {
			continue
		}
		var nl netlink.Link
		nl, err = netlink.LinkByIndex(r.LinkIndex)
		if err != nil {
			return "", fmt.Errorf("error accessing default route interface: %w", err)
		}
		return nl.Attrs().Name, nil
	}
	return "", fmt.Errorf("no default route found")
}
