// Package version provides build version information.
package version

import (
	"fmt"
	"runtime"
)

// These are set via ldflags at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Name is the program name used in version strings and request headers.
const Name = "spellbook"

// Info returns a one-line version summary.
func Info() string {
	return fmt.Sprintf("%s %s (%s) built on %s with %s",
		Name, Version, shortCommit(), BuildDate, runtime.Version())
}

// Short returns just the version number.
func Short() string {
	return Version
}

// Full returns all version details, one per line.
func Full() string {
	return fmt.Sprintf("Version: %s\nCommit: %s\nBuild Date: %s\nGo Version: %s\nOS/Arch: %s/%s",
		Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies this build in outgoing HTTP requests.
func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s/%s)", Name, Version, runtime.GOOS, runtime.GOARCH)
}

func shortCommit() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}
	return Commit
}
