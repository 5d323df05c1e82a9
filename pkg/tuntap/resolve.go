package tuntap

import (
	"fmt"
	"golang.org/x/exp/slices"
	"runtime"
	"strings"
)

// Mode selects between a layer 3 (tun) and layer 2 (tap) interface
type Mode int

const (
	ModeAuto Mode = iota
	ModeTun
	ModeTap
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeTun:
		return "tun"
	case ModeTap:
		return "tap"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a mode name.  An empty string means ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ModeAuto, nil
	case "tun":
		return ModeTun, nil
	case "tap":
		return ModeTap, nil
	default:
		return ModeAuto, fmt.Errorf("invalid mode %q: must be tun, tap or auto", s)
	}
}

// Platform identifies which family of kernel interfaces is used to open the device
type Platform int

const (
	PlatformUnsupported Platform = iota
	PlatformLinux
	PlatformDarwin
	PlatformBSD
)

func (p Platform) String() string {
	switch p {
	case PlatformLinux:
		return "linux"
	case PlatformDarwin:
		return "darwin"
	case PlatformBSD:
		return "bsd"
	default:
		return "unsupported"
	}
}

// PlatformForOS maps a GOOS value to a Platform
func PlatformForOS(goos string) Platform {
	switch goos {
	case "linux", "android":
		return PlatformLinux
	case "darwin", "ios":
		return PlatformDarwin
	case "freebsd", "netbsd", "openbsd", "dragonfly":
		return PlatformBSD
	default:
		return PlatformUnsupported
	}
}

// CurrentPlatform returns the Platform of the running program
func CurrentPlatform() Platform {
	return PlatformForOS(runtime.GOOS)
}

// InterfaceSpec is a validated description of the interface to open
type InterfaceSpec struct {
	Name     string
	Mode     Mode
	Platform Platform
}

var (
	tunPrefixes = []string{"tun", "utun"}
	tapPrefixes = []string{"tap"}
)

func hasAnyPrefix(name string, prefixes []string) bool {
	return slices.ContainsFunc(prefixes, func(p string) bool {
		return strings.HasPrefix(name, p)
	})
}

// InferMode determines the interface mode from its name
func InferMode(name string) (Mode, error) {
	switch {
	case hasAnyPrefix(name, tunPrefixes):
		return ModeTun, nil
	case hasAnyPrefix(name, tapPrefixes):
		return ModeTap, nil
	default:
		return ModeAuto, fmt.Errorf("%w %q: set the mode explicitly", ErrAmbiguousMode, name)
	}
}

// Resolve produces an InterfaceSpec.  If name is empty, defaultName is used instead.  If mode is ModeAuto, the
// mode is inferred from the name.  Names are not truncated here; that is up to the platform strategy.
func Resolve(name string, defaultName string, mode Mode, platform Platform) (InterfaceSpec, error) {
	if name == "" {
		name = defaultName
	}
	if name == "" {
		return InterfaceSpec{}, fmt.Errorf("%w: no interface name given and no default available", ErrInvalidName)
	}
	switch mode {
	case ModeAuto:
		var err error
		mode, err = InferMode(name)
		if err != nil {
			return InterfaceSpec{}, err
		}
	case ModeTun, ModeTap:
	default:
		return InterfaceSpec{}, fmt.Errorf("invalid mode %s", mode)
	}
	return InterfaceSpec{
		Name:     name,
		Mode:     mode,
		Platform: platform,
	}, nil
}
