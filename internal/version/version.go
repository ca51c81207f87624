// Package version holds build information injected at link time.
package version

import "fmt"

// Set via ldflags:
//
//	go build -ldflags "-X github.com/ordercast/ordercast/internal/version.Version=v0.2.0 \
//	  -X github.com/ordercast/ordercast/internal/version.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/ordercast/ordercast/internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns a human-readable build description.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
