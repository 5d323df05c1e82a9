package version

import (
	"runtime/debug"
)

// version is set by ldflags when built from a release
var version = ""

// Version returns the version number supplied during build, or the module version if the binary was
// installed with go install
func Version() string {
	if version != "" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return "dev"
}
