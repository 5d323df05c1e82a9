package checkroot

import (
	"os"
)

// CheckRoot returns true if the effective user is root
func CheckRoot() bool {
	return os.Geteuid() == 0
}

// CanCreateInterfaces returns true if the process is likely to be allowed to create tun/tap interfaces
func CanCreateInterfaces() bool {
	return CheckRoot() || CheckNetAdmin()
}
