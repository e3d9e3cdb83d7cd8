// Package version carries build metadata set through ldflags:
// go build -ldflags "-X git.home.luguber.info/inful/sitebuilder/internal/version.Version=v1.2.0".
package version

import "fmt"

// Version is the release of the binary.
var Version = "unknown"

// Build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the line printed by --version.
func String() string {
	return fmt.Sprintf("sitebuilder %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
