// Package version holds build metadata injected with -ldflags -X.
package version

import (
	"fmt"
	"runtime/debug"
)

// Build metadata. Release builds override these with
// -ldflags "-X github.com/Sumatoshi-tech/blamethrower/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the metadata for the version command.
func String() string {
	return fmt.Sprintf("blamethrower %s (commit: %s, built: %s)", Version, Commit, Date)
}

// InitBinaryVersion fills Version and Commit from the embedded module build
// info when no ldflags were given, e.g. after go install.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	if Commit != "none" {
		return
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			Commit = setting.Value
		}
	}
}
