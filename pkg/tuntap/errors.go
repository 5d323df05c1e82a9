package tuntap

import (
	"fmt"
)

var (
	ErrNotImplemented           = fmt.Errorf("not implemented on this platform")
	ErrAmbiguousMode            = fmt.Errorf("could not determine interface mode from name")
	ErrInvalidName              = fmt.Errorf("invalid interface name")
	ErrUnsupportedPlatform      = fmt.Errorf("tun/tap interfaces are not supported on this platform")
	ErrDeviceOpen               = fmt.Errorf("error opening tun/tap device")
	ErrUnsupportedAddressFamily = fmt.Errorf("non-IP address families are not supported")
	ErrClosedChannel            = fmt.Errorf("channel is closed")
	ErrShortFrame               = fmt.Errorf("frame shorter than packet info header")
	ErrFrameTooLarge            = fmt.Errorf("frame too large")
)

// TransportWriteError is returned by Send when the underlying device rejects a write.  The channel remains usable.
type TransportWriteError struct {
	Name string
	Err  error
}

func (e *TransportWriteError) Error() string {
	return fmt.Sprintf("error writing to %s: %s", e.Name, e.Err)
}

func (e *TransportWriteError) Unwrap() error {
	return e.Err
}
