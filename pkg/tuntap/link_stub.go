//go:build !linux

package tuntap

func ConfigureLink(name string, opts ...func(*LinkOptions)) error {
	return ErrNotImplemented
}

func DefaultInterfaceName() (string, error) {
	return "", ErrNotImplemented
}
