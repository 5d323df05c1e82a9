//go:build !linux

package checkroot

// CheckNetAdmin always returns false, since capabilities are Linux specific
func CheckNetAdmin() bool {
	return false
}
