package tuntap

import (
	"encoding/binary"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
)

func wrapIPv4(t *testing.T, payload Frame) IPv4 {
	t.Helper()
	ip, err := WrapIPv4(payload)
	require.NoError(t, err)
	return ip
}

type ioctlCall struct {
	req uintptr
	arg []byte
}

// fakeDevice records what a strategy or channel does to a device
type fakeDevice struct {
	frames     [][]byte
	readSizes  []int
	written    [][]byte
	ioctls     []ioctlCall
	ioctlErr   error
	writeErr   error
	connectErr error
	closes     int
	ctlID      uint32
	kernelName string
	connID     uint32
	connUnit   uint32
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	d.readSizes = append(d.readSizes, len(p))
	if d.closes > 0 {
		return 0, io.ErrClosedPipe
	}
	if len(d.frames) == 0 {
		return 0, io.EOF
	}
	n := copy(p, d.frames[0])
	d.frames = d.frames[1:]
	return n, nil
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	if d.writeErr != nil {
		return 0, d.writeErr
	}
	d.written = append(d.written, append([]byte(nil), p...))
	return len(p), nil
}

func (d *fakeDevice) Close() error {
	d.closes++
	return nil
}

func (d *fakeDevice) Ioctl(req uintptr, arg []byte) error {
	d.ioctls = append(d.ioctls, ioctlCall{req: req, arg: append([]byte(nil), arg...)})
	if d.ioctlErr != nil {
		return d.ioctlErr
	}
	switch req {
	case DarwinCTLIOCGINFO:
		binary.NativeEndian.PutUint32(arg, d.ctlID)
	case LinuxTUNSETIFF:
		if d.kernelName != "" {
			copy(arg[:LinuxIFNAMSIZ], make([]byte, LinuxIFNAMSIZ))
			copy(arg, d.kernelName)
		}
	}
	return nil
}

func (d *fakeDevice) ConnectControl(id uint32, unit uint32) error {
	if d.connectErr != nil {
		return d.connectErr
	}
	d.connID = id
	d.connUnit = unit
	return nil
}

type fakeSystem struct {
	dev     *fakeDevice
	openErr error
	paths   []string
	sockets int
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{dev: &fakeDevice{}}
}

func (s *fakeSystem) OpenDevice(path string) (device, error) {
	s.paths = append(s.paths, path)
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.dev, nil
}

func (s *fakeSystem) OpenControlSocket() (ctlDevice, error) {
	s.sockets++
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.dev, nil
}
