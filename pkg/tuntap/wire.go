package tuntap

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Linux constants, from linux/if_tun.h and linux/if.h
const (
	LinuxTunDevice = "/dev/net/tun"
	LinuxTUNSETIFF = 0x400454ca
	LinuxIFF_TUN   = 0x0001
	LinuxIFF_TAP   = 0x0002
	LinuxIFF_NO_PI = 0x1000
	LinuxIFNAMSIZ  = 16

	// sizeof(struct ifreq).  The kernel copies this many bytes regardless of which union member is used.
	linuxIfReqBufSize = 40
)

// Darwin constants, from net/if_utun.h and sys/kern_control.h
const (
	DarwinCTLIOCGINFO     = 0xc0644e03
	DarwinUtunControlName = "com.apple.net.utun_control"
	DarwinMaxKctlName     = 96

	// SYSPROTO_CONTROL from sys/sys_domain.h, not exported by x/sys
	darwinSYSPROTO_CONTROL = 2
)

// Darwin address families carried in the utun packet header
const (
	DarwinAFInet  uint32 = 2
	DarwinAFInet6 uint32 = 30
)

// IfReq is the Linux TUNSETIFF request: the name and flags members of struct ifreq
type IfReq struct {
	Name  string
	Flags uint16
}

const (
	ifReqNameOff  = 0
	ifReqFlagsOff = ifReqNameOff + LinuxIFNAMSIZ
	IfReqSize     = ifReqFlagsOff + 2
)

// Marshal packs the request.  The name must fit in LinuxIFNAMSIZ bytes and is zero padded.
func (r IfReq) Marshal() ([]byte, error) {
	if len(r.Name) > LinuxIFNAMSIZ {
		return nil, fmt.Errorf("%w: %q is longer than %d bytes", ErrInvalidName, r.Name, LinuxIFNAMSIZ)
	}
	b := make([]byte, IfReqSize)
	copy(b[ifReqNameOff:ifReqFlagsOff], r.Name)
	binary.NativeEndian.PutUint16(b[ifReqFlagsOff:], r.Flags)
	return b, nil
}

// UnmarshalIfReq unpacks a request, such as the one written back by the kernel
func UnmarshalIfReq(b []byte) (IfReq, error) {
	if len(b) < IfReqSize {
		return IfReq{}, fmt.Errorf("ifreq too short: %d bytes", len(b))
	}
	return IfReq{
		Name:  cString(b[ifReqNameOff:ifReqFlagsOff]),
		Flags: binary.NativeEndian.Uint16(b[ifReqFlagsOff:]),
	}, nil
}

// ioctlBuffer returns the request padded out to a full struct ifreq
func (r IfReq) ioctlBuffer() ([]byte, error) {
	b, err := r.Marshal()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, linuxIfReqBufSize)
	copy(buf, b)
	return buf, nil
}

// CtlInfo is the Darwin struct ctl_info, used to look up a kernel control ID by name
type CtlInfo struct {
	ID   uint32
	Name string
}

const (
	ctlInfoIDOff   = 0
	ctlInfoNameOff = ctlInfoIDOff + 4
	CtlInfoSize    = ctlInfoNameOff + DarwinMaxKctlName
)

func (c CtlInfo) Marshal() ([]byte, error) {
	if len(c.Name) >= DarwinMaxKctlName {
		return nil, fmt.Errorf("control name %q is longer than %d bytes", c.Name, DarwinMaxKctlName-1)
	}
	b := make([]byte, CtlInfoSize)
	binary.NativeEndian.PutUint32(b[ctlInfoIDOff:], c.ID)
	copy(b[ctlInfoNameOff:], c.Name)
	return b, nil
}

func UnmarshalCtlInfo(b []byte) (CtlInfo, error) {
	if len(b) < CtlInfoSize {
		return CtlInfo{}, fmt.Errorf("ctl_info too short: %d bytes", len(b))
	}
	return CtlInfo{
		ID:   binary.NativeEndian.Uint32(b[ctlInfoIDOff:]),
		Name: cString(b[ctlInfoNameOff:CtlInfoSize]),
	}, nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
