//go:build linux || freebsd || netbsd || openbsd || dragonfly

package tuntap

func (unixSystem) OpenControlSocket() (ctlDevice, error) {
	return nil, ErrNotImplemented
}
