package tuntap

import (
	"encoding/binary"
	"fmt"
)

// PayloadType identifies what kind of data a frame holds
type PayloadType int

const (
	// PayloadRaw is unclassified data
	PayloadRaw PayloadType = iota
	PayloadIPv4
	PayloadIPv6
	// PayloadIPv46 is a raw IP packet whose version must be detected from its first nibble
	PayloadIPv46
	PayloadEthernet
	// PayloadTunInfo is a Linux tun frame, starting with a TunHeader
	PayloadTunInfo
	// PayloadUtunInfo is a Darwin utun frame, starting with a UtunHeader
	PayloadUtunInfo
)

func (t PayloadType) String() string {
	switch t {
	case PayloadRaw:
		return "raw"
	case PayloadIPv4:
		return "ipv4"
	case PayloadIPv6:
		return "ipv6"
	case PayloadIPv46:
		return "ip"
	case PayloadEthernet:
		return "ethernet"
	case PayloadTunInfo:
		return "tun-info"
	case PayloadUtunInfo:
		return "utun-info"
	default:
		return fmt.Sprintf("PayloadType(%d)", int(t))
	}
}

// ParsePayloadType parses the name of a payload type, as returned by String
func ParsePayloadType(s string) (PayloadType, error) {
	for t := PayloadRaw; t <= PayloadUtunInfo; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return PayloadRaw, fmt.Errorf("unknown payload type %q", s)
}

// Ethertypes used in packet info headers
const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeIPv6 uint16 = 0x86dd
	// EtherTypeRaw is the default tun header type, meaning the IP version is detected from the payload
	EtherTypeRaw uint16 = 0x9000
)

// HeaderSize is the length of both packet info header formats
const HeaderSize = 4

// TunVnetHdr is the TunHeader flag bit indicating a virtio net header follows
const TunVnetHdr uint16 = 0x0001

// TunHeader is the Linux struct tun_pi.  Flags are in native byte order, the type is in network byte order.
type TunHeader struct {
	Flags     uint16
	EtherType uint16
}

// DefaultTunHeader returns the header used when none is supplied
func DefaultTunHeader() TunHeader {
	return TunHeader{EtherType: EtherTypeRaw}
}

func (h TunHeader) Marshal() []byte {
	b := make([]byte, HeaderSize)
	binary.NativeEndian.PutUint16(b[0:2], h.Flags)
	binary.BigEndian.PutUint16(b[2:4], h.EtherType)
	return b
}

func UnmarshalTunHeader(b []byte) (TunHeader, error) {
	if len(b) < HeaderSize {
		return TunHeader{}, ErrShortFrame
	}
	return TunHeader{
		Flags:     binary.NativeEndian.Uint16(b[0:2]),
		EtherType: binary.BigEndian.Uint16(b[2:4]),
	}, nil
}

// PayloadType returns the type of the data following the header
func (h TunHeader) PayloadType() PayloadType {
	switch h.EtherType {
	case EtherTypeIPv4:
		return PayloadIPv4
	case EtherTypeIPv6:
		return PayloadIPv6
	case EtherTypeRaw:
		return PayloadIPv46
	default:
		return PayloadRaw
	}
}

// UtunHeader is the Darwin utun packet header, holding the address family of the payload.  The kernel keeps
// this field in network byte order.
type UtunHeader struct {
	AddrFamily uint32
}

// DefaultUtunHeader returns the header used when none is supplied
func DefaultUtunHeader() UtunHeader {
	return UtunHeader{AddrFamily: DarwinAFInet}
}

func (h UtunHeader) Marshal() []byte {
	b := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(b, h.AddrFamily)
	return b
}

func UnmarshalUtunHeader(b []byte) (UtunHeader, error) {
	if len(b) < HeaderSize {
		return UtunHeader{}, ErrShortFrame
	}
	return UtunHeader{AddrFamily: binary.BigEndian.Uint32(b)}, nil
}

// PayloadType returns the type of the data following the header, or an error for non-IP families
func (h UtunHeader) PayloadType() (PayloadType, error) {
	switch h.AddrFamily {
	case DarwinAFInet:
		return PayloadIPv4, nil
	case DarwinAFInet6:
		return PayloadIPv6, nil
	default:
		return PayloadRaw, fmt.Errorf("%w: address family %d", ErrUnsupportedAddressFamily, h.AddrFamily)
	}
}

// ClassifyHeader determines the type of the payload following a packet info header of the given kind, looking
// only at the header bytes.
func ClassifyHeader(kind PayloadType, hdr []byte) (PayloadType, error) {
	switch kind {
	case PayloadTunInfo:
		h, err := UnmarshalTunHeader(hdr)
		if err != nil {
			return PayloadRaw, err
		}
		return h.PayloadType(), nil
	case PayloadUtunInfo:
		h, err := UnmarshalUtunHeader(hdr)
		if err != nil {
			return PayloadRaw, err
		}
		return h.PayloadType()
	default:
		return PayloadRaw, fmt.Errorf("%s frames have no packet info header", kind)
	}
}
