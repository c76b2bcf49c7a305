// Package version holds build version information, set at link time.
package version

var (
	// Version is the semantic version of the build, overridden with
	// -ldflags "-X github.com/stellmhd/stellmhd/pkg/version.Version=...".
	Version = "dev"

	// GitCommit is the short commit hash of the build.
	GitCommit = "unknown"
)
