//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package tuntap

import (
	"golang.org/x/sys/unix"
	"os"
	"runtime"
	"unsafe"
)

var hostSystem system = unixSystem{}

type unixSystem struct{}

// fileDevice is a device file or socket wrapped in an os.File.  Reads and writes are unbuffered.
type fileDevice struct {
	*os.File
}

func (d fileDevice) Ioctl(req uintptr, arg []byte) error {
	rc, err := d.SyscallConn()
	if err != nil {
		return err
	}
	var errno unix.Errno
	err = rc.Control(func(fd uintptr) {
		_, _, errno = unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(unsafe.Pointer(&arg[0])))
	})
	runtime.KeepAlive(arg)
	if err != nil {
		return err
	}
	if errno != 0 {
		return errno
	}
	return nil
}

func (unixSystem) OpenDevice(path string) (device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return fileDevice{File: f}, nil
}
