package tuntap

import (
	"fmt"
	log "github.com/sirupsen/logrus"
)

// CharDeviceStrategy opens Linux tun/tap interfaces by binding /dev/net/tun with TUNSETIFF
type CharDeviceStrategy struct {
	sys system
}

// linuxOpenRequest builds the TUNSETIFF request for an interface, truncating the name if needed.  The second
// return value is true if packet info stripping is forced.
func linuxOpenRequest(spec InterfaceSpec) (IfReq, bool) {
	name := spec.Name
	if len(name) > LinuxIFNAMSIZ {
		log.Warnf("Linux interface names are limited to %d bytes, truncating %q", LinuxIFNAMSIZ, name)
		name = name[:LinuxIFNAMSIZ]
	}
	if spec.Mode == ModeTun {
		return IfReq{Name: name, Flags: LinuxIFF_TUN}, false
	}
	// tap frames carry their own ethertype, so packet info is always disabled
	log.Warnf("tap devices on Linux do not include packet info, stripping is forced on %s", name)
	return IfReq{Name: name, Flags: LinuxIFF_TAP | LinuxIFF_NO_PI}, true
}

func (s *CharDeviceStrategy) Open(spec InterfaceSpec) (*Handle, error) {
	req, forceStrip := linuxOpenRequest(spec)
	buf, err := req.ioctlBuffer()
	if err != nil {
		return nil, err
	}
	dev, err := s.sys.OpenDevice(LinuxTunDevice)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDeviceOpen, LinuxTunDevice, err)
	}
	err = dev.Ioctl(LinuxTUNSETIFF, buf)
	if err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("%w: TUNSETIFF %s: %w", ErrDeviceOpen, req.Name, err)
	}
	name := req.Name
	// the kernel writes back the assigned name, which differs when a pattern like tun%d was requested
	actual, err := UnmarshalIfReq(buf)
	if err == nil && actual.Name != "" {
		name = actual.Name
	}
	h := &Handle{
		Device:     dev,
		Name:       name,
		ForceStrip: forceStrip,
	}
	if spec.Mode == ModeTun {
		h.KernelType = PayloadTunInfo
		h.Overhead = HeaderSize
	} else {
		h.KernelType = PayloadEthernet
	}
	return h, nil
}
