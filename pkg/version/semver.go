package version

import (
	"github.com/Masterminds/semver/v3"
)

var (
	parsedVersion  *semver.Version
	parseAttempted bool
)

// resetParsedVersion clears the cached parse, for tests that change Version.
func resetParsedVersion() {
	parsedVersion = nil
	parseAttempted = false
}

// Parsed returns Version as a semantic version, or nil for builds such as
// "dev" that carry no semver. The result is cached.
func Parsed() *semver.Version {
	if parsedVersion != nil || parseAttempted {
		return parsedVersion
	}
	parseAttempted = true

	v, err := semver.NewVersion(Version)
	if err != nil {
		return nil
	}
	parsedVersion = v
	return parsedVersion
}

// IsPrerelease reports whether the build is a pre-release.
func IsPrerelease() bool {
	v := Parsed()
	return v != nil && v.Prerelease() != ""
}

// IsDevBuild reports whether the build has no valid semver.
func IsDevBuild() bool {
	return Parsed() == nil
}

// IsNewerThan reports whether the build is newer than other.
// Unparseable versions compare as not newer.
func IsNewerThan(other string) bool {
	current := Parsed()
	if current == nil {
		return false
	}
	otherV, err := semver.NewVersion(other)
	if err != nil {
		return false
	}
	return current.GreaterThan(otherV)
}
