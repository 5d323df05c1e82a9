//go:build linux

package checkroot

import (
	"github.com/syndtr/gocapability/capability"
)

// CheckNetAdmin returns true if the process holds CAP_NET_ADMIN
func CheckNetAdmin() bool {
	c, err := capability.NewPid2(0)
	if err != nil {
		return false
	}
	err = c.Load()
	if err != nil {
		return false
	}
	return c.Get(capability.EFFECTIVE, capability.CAP_NET_ADMIN)
}
