// Package buildconfig exposes build-time metadata injected via ldflags:
//
//	-X .../internal/buildconfig.version=v1.2.3
//	-X .../internal/buildconfig.commit=abc1234
//	-X .../internal/buildconfig.buildDate=2026-01-15
package buildconfig

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Version returns the build version.
func Version() string {
	return version
}

// Commit returns the git commit hash.
func Commit() string {
	return commit
}

// BuildDate returns the build timestamp.
func BuildDate() string {
	return buildDate
}

// VersionInfo returns full version information.
func VersionInfo() map[string]string {
	return map[string]string{
		"version":    version,
		"commit":     commit,
		"build_date": buildDate,
	}
}
