// Package version carries build metadata injected via ldflags:
//
//	-X github.com/ManuGH/eventbus/internal/version.Version=v1.2.0
package version

import "fmt"

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String formats the full build identity for -version output.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
