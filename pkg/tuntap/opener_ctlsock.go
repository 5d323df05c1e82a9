package tuntap

import (
	"fmt"
	"strconv"
	"strings"
)

// ControlSocketStrategy opens Darwin utun interfaces through a kernel control socket, and BSD style tun/tap
// interfaces through their device files.
type ControlSocketStrategy struct {
	sys system
}

const utunPrefix = "utun"

var bsdPrefixes = []string{"tap", "tun", utunPrefix}

// utunUnit parses the interface number from a utun name
func utunUnit(name string) (uint32, error) {
	unit, err := strconv.ParseUint(strings.TrimPrefix(name, utunPrefix), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w %q: utun names must end in a number", ErrInvalidName, name)
	}
	return uint32(unit), nil
}

func (s *ControlSocketStrategy) Open(spec InterfaceSpec) (*Handle, error) {
	if !hasAnyPrefix(spec.Name, bsdPrefixes) {
		return nil, fmt.Errorf("%w %q: interface names must start with tun, utun or tap on BSD and Darwin",
			ErrInvalidName, spec.Name)
	}
	if strings.HasPrefix(spec.Name, utunPrefix) {
		return s.openUtun(spec)
	}
	path := "/dev/" + spec.Name
	dev, err := s.sys.OpenDevice(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDeviceOpen, path, err)
	}
	h := &Handle{
		Device:     dev,
		Name:       spec.Name,
		KernelType: PayloadEthernet,
	}
	if spec.Mode == ModeTun {
		h.KernelType = PayloadIPv46
	}
	return h, nil
}

func (s *ControlSocketStrategy) openUtun(spec InterfaceSpec) (*Handle, error) {
	unit, err := utunUnit(spec.Name)
	if err != nil {
		return nil, err
	}
	if spec.Mode != ModeTun {
		return nil, fmt.Errorf("%w %q: utun interfaces cannot be opened in %s mode", ErrInvalidName, spec.Name, spec.Mode)
	}
	query, err := CtlInfo{Name: DarwinUtunControlName}.Marshal()
	if err != nil {
		return nil, err
	}
	sock, err := s.sys.OpenControlSocket()
	if err != nil {
		return nil, fmt.Errorf("%w: control socket: %w", ErrDeviceOpen, err)
	}
	success := false
	defer func() {
		if !success {
			_ = sock.Close()
		}
	}()
	err = sock.Ioctl(DarwinCTLIOCGINFO, query)
	if err != nil {
		return nil, fmt.Errorf("%w: CTLIOCGINFO %s: %w", ErrDeviceOpen, DarwinUtunControlName, err)
	}
	var info CtlInfo
	info, err = UnmarshalCtlInfo(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceOpen, err)
	}
	// unit numbers on the control socket are one more than the interface number
	err = sock.ConnectControl(info.ID, unit+1)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting %s: %w", ErrDeviceOpen, spec.Name, err)
	}
	success = true
	return &Handle{
		Device:     sock,
		Name:       spec.Name,
		KernelType: PayloadUtunInfo,
		Overhead:   HeaderSize,
	}, nil
}
