// Package build exposes version details injected at link time.
package build

import "fmt"

// These variables are set at build time via -ldflags, e.g.
//
//	-X github.com/jlh-tonga/meds/internal/build.Version=v1.2.0
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// Info is the build metadata as served by the API.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Current returns the metadata of the running binary.
func Current() Info {
	return Info{Version: Version, Commit: CommitSHA, BuildDate: BuildDate}
}

// IsDev reports whether the binary was built without a release version.
func IsDev() bool { return Version == "dev" || Version == "" }

// String returns a single human-readable build info string.
func String() string {
	return fmt.Sprintf("meds %s (commit %s, built %s)", Version, CommitSHA, BuildDate)
}
