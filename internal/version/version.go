// Package version holds build information set with -ldflags, e.g.
//
//	go build -ldflags "-X ripecheck/internal/version.Version=1.2.0 -X ripecheck/internal/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String returns a one-line summary for `ripecheck version`.
func String() string {
	return fmt.Sprintf("ripecheck %s (commit %s, built %s, %s/%s)",
		Version, GitCommit, BuildTime, runtime.GOOS, runtime.GOARCH)
}
