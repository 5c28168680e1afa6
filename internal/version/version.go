package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the version the way camwatch reports it at startup and on
// the version endpoint, e.g. "collision-report dev (unknown, built unknown)".
func String() string {
	return fmt.Sprintf("collision-report %s (%s, built %s)", Version, GitSHA, BuildTime)
}
