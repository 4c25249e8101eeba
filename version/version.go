// Package version holds the build information injected via ldflags.
package version

import "fmt"

var (
	// Version is the semantic version of the build.
	Version = "v0.0.0-dev"
	// GitCommit is the commit the build was produced from.
	GitCommit = ""
	// BuildDate is the timestamp of the build.
	BuildDate = ""

	// FullVersion combines the values above for display.
	FullVersion = func() string {
		if GitCommit == "" {
			return Version
		}
		return fmt.Sprintf("%s (%s) built %s", Version, GitCommit, BuildDate)
	}()
)
