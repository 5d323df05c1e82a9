package tuntap

import (
	"fmt"
	"io"
)

// device is an open tun/tap handle that accepts ioctl requests
type device interface {
	io.ReadWriteCloser
	Ioctl(req uintptr, arg []byte) error
}

// ctlDevice is a kernel control socket
type ctlDevice interface {
	device
	ConnectControl(id uint32, unit uint32) error
}

// system abstracts the operating system calls used by the strategies
type system interface {
	OpenDevice(path string) (device, error)
	OpenControlSocket() (ctlDevice, error)
}

// Handle is the result of a successful open
type Handle struct {
	// Device is the open device or socket.  The caller owns it.
	Device io.ReadWriteCloser
	// Name is the interface name as reported by the kernel
	Name string
	// KernelType is the type of every frame read from or written to Device
	KernelType PayloadType
	// Overhead is the length of the packet info header on each frame
	Overhead int
	// ForceStrip indicates that packet info must be stripped regardless of the caller's preference
	ForceStrip bool
}

// Strategy turns an InterfaceSpec into an open Handle
type Strategy interface {
	Open(spec InterfaceSpec) (*Handle, error)
}

// StrategyFor returns the open strategy for a platform
func StrategyFor(p Platform) (Strategy, error) {
	return strategyFor(p, hostSystem)
}

func strategyFor(p Platform, sys system) (Strategy, error) {
	switch p {
	case PlatformLinux:
		return &CharDeviceStrategy{sys: sys}, nil
	case PlatformDarwin, PlatformBSD:
		return &ControlSocketStrategy{sys: sys}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, p)
	}
}
