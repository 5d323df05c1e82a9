//go:build darwin

package tuntap

import (
	"golang.org/x/sys/unix"
	"os"
)

type controlSocket struct {
	fileDevice
}

func (unixSystem) OpenControlSocket() (ctlDevice, error) {
	fd, err := unix.Socket(unix.AF_SYSTEM, unix.SOCK_DGRAM, darwinSYSPROTO_CONTROL)
	if err != nil {
		return nil, err
	}
	return controlSocket{fileDevice{File: os.NewFile(uintptr(fd), DarwinUtunControlName)}}, nil
}

func (c controlSocket) ConnectControl(id uint32, unit uint32) error {
	rc, err := c.SyscallConn()
	if err != nil {
		return err
	}
	var connErr error
	err = rc.Control(func(fd uintptr) {
		connErr = unix.Connect(int(fd), &unix.SockaddrCtl{ID: id, Unit: unit})
	})
	if err != nil {
		return err
	}
	return connErr
}
