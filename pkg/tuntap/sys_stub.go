//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

package tuntap

var hostSystem system = stubSystem{}

type stubSystem struct{}

func (stubSystem) OpenDevice(path string) (device, error) {
	return nil, ErrNotImplemented
}

func (stubSystem) OpenControlSocket() (ctlDevice, error) {
	return nil, ErrNotImplemented
}
