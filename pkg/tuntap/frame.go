package tuntap

import (
	"fmt"
	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/header"
)

// Frame is a unit of data that can be sent to a tun/tap device
type Frame interface {
	PayloadType() PayloadType
	Bytes() []byte
}

// Raw is unclassified data
type Raw []byte

// IPv4 is a complete IPv4 packet, including its header
type IPv4 []byte

// IPv6 is a complete IPv6 packet, including its header
type IPv6 []byte

// Ethernet is a complete Ethernet frame, including its header
type Ethernet []byte

func (f Raw) PayloadType() PayloadType      { return PayloadRaw }
func (f Raw) Bytes() []byte                 { return f }
func (f IPv4) PayloadType() PayloadType     { return PayloadIPv4 }
func (f IPv4) Bytes() []byte                { return f }
func (f IPv6) PayloadType() PayloadType     { return PayloadIPv6 }
func (f IPv6) Bytes() []byte                { return f }
func (f Ethernet) PayloadType() PayloadType { return PayloadEthernet }
func (f Ethernet) Bytes() []byte            { return f }

// TunPacket is a Linux tun frame: a TunHeader followed by a payload
type TunPacket struct {
	Header  TunHeader
	Payload Frame
}

func (p TunPacket) PayloadType() PayloadType {
	return PayloadTunInfo
}

func (p TunPacket) Bytes() []byte {
	return append(p.Header.Marshal(), payloadBytes(p.Payload)...)
}

// UtunPacket is a Darwin utun frame: a UtunHeader followed by a payload
type UtunPacket struct {
	Header  UtunHeader
	Payload Frame
}

func (p UtunPacket) PayloadType() PayloadType {
	return PayloadUtunInfo
}

func (p UtunPacket) Bytes() []byte {
	return append(p.Header.Marshal(), payloadBytes(p.Payload)...)
}

func payloadBytes(f Frame) []byte {
	if f == nil {
		return nil
	}
	return f.Bytes()
}

// ipVersion returns 4 or 6 if the frame is typed as IP or is a well-formed IP packet, and 0 otherwise
func ipVersion(f Frame) int {
	switch f := f.(type) {
	case IPv4:
		return header.IPv4Version
	case IPv6:
		return header.IPv6Version
	case Raw:
		switch {
		case header.IPv4(f).IsValid(len(f)):
			return header.IPv4Version
		case header.IPv6(f).IsValid(len(f)):
			return header.IPv6Version
		}
	}
	return 0
}

var defaultIPv4Addr = tcpip.AddrFrom4([4]byte{127, 0, 0, 1})

const defaultTTL = 64

const maxIPv4Payload = 0xffff - header.IPv4MinimumSize

var zeroLinkAddr = tcpip.LinkAddress("\x00\x00\x00\x00\x00\x00")

// WrapIPv4 places a payload inside a minimal IPv4 header, addressed from and to 127.0.0.1
func WrapIPv4(payload Frame) (IPv4, error) {
	data := payloadBytes(payload)
	if len(data) > maxIPv4Payload {
		return nil, fmt.Errorf("%w: %d byte payload does not fit in an IPv4 packet", ErrFrameTooLarge, len(data))
	}
	b := make([]byte, header.IPv4MinimumSize+len(data))
	ip := header.IPv4(b)
	ip.Encode(&header.IPv4Fields{
		TotalLength: uint16(len(b)),
		TTL:         defaultTTL,
		SrcAddr:     defaultIPv4Addr,
		DstAddr:     defaultIPv4Addr,
	})
	ip.SetChecksum(^ip.CalculateChecksum())
	copy(b[header.IPv4MinimumSize:], data)
	return IPv4(b), nil
}

// NewTunPacket wraps a payload in a TunHeader whose type matches the payload
func NewTunPacket(payload Frame) TunPacket {
	h := DefaultTunHeader()
	switch ipVersion(payload) {
	case header.IPv4Version:
		h.EtherType = EtherTypeIPv4
	case header.IPv6Version:
		h.EtherType = EtherTypeIPv6
	}
	return TunPacket{Header: h, Payload: payload}
}

// NewUtunPacket wraps a payload in a UtunHeader whose address family matches the payload
func NewUtunPacket(payload Frame) UtunPacket {
	h := DefaultUtunHeader()
	if ipVersion(payload) == header.IPv6Version {
		h.AddrFamily = DarwinAFInet6
	}
	return UtunPacket{Header: h, Payload: payload}
}

// NewEthernet wraps a payload in a broadcast Ethernet header
func NewEthernet(payload Frame) Ethernet {
	data := payloadBytes(payload)
	etherType := tcpip.NetworkProtocolNumber(EtherTypeRaw)
	switch ipVersion(payload) {
	case header.IPv4Version:
		etherType = header.IPv4ProtocolNumber
	case header.IPv6Version:
		etherType = header.IPv6ProtocolNumber
	}
	b := make([]byte, header.EthernetMinimumSize+len(data))
	header.Ethernet(b).Encode(&header.EthernetFields{
		SrcAddr: zeroLinkAddr,
		DstAddr: header.EthernetBroadcastAddress,
		Type:    etherType,
	})
	copy(b[header.EthernetMinimumSize:], data)
	return Ethernet(b)
}

// ParseFrame turns received bytes of a given type back into a Frame
func ParseFrame(t PayloadType, b []byte) (Frame, error) {
	switch t {
	case PayloadRaw:
		return Raw(b), nil
	case PayloadIPv4:
		return IPv4(b), nil
	case PayloadIPv6:
		return IPv6(b), nil
	case PayloadIPv46:
		switch header.IPVersion(b) {
		case header.IPv4Version:
			return IPv4(b), nil
		case header.IPv6Version:
			return IPv6(b), nil
		default:
			return Raw(b), nil
		}
	case PayloadEthernet:
		if len(b) < header.EthernetMinimumSize {
			return nil, fmt.Errorf("ethernet frame too short: %d bytes", len(b))
		}
		return Ethernet(b), nil
	case PayloadTunInfo:
		h, err := UnmarshalTunHeader(b)
		if err != nil {
			return nil, err
		}
		payload, err := ParseFrame(h.PayloadType(), b[HeaderSize:])
		if err != nil {
			return nil, err
		}
		return TunPacket{Header: h, Payload: payload}, nil
	case PayloadUtunInfo:
		h, err := UnmarshalUtunHeader(b)
		if err != nil {
			return nil, err
		}
		pt, err := h.PayloadType()
		if err != nil {
			return nil, err
		}
		payload, err := ParseFrame(pt, b[HeaderSize:])
		if err != nil {
			return nil, err
		}
		return UtunPacket{Header: h, Payload: payload}, nil
	default:
		return nil, fmt.Errorf("unknown payload type %s", t)
	}
}
