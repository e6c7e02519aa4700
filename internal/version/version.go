// Package version exposes build metadata. Values are overridden at link time:
//
//	go build -ldflags "-X multicanvas/internal/version.Version=1.2.0 -X multicanvas/internal/version.Commit=abc123"
package version

import "fmt"

var (
	Version = "0.1.0-dev"
	Commit  = ""
)

// String returns a human readable version line.
func String() string {
	if Commit == "" {
		return fmt.Sprintf("multicanvas %s", Version)
	}
	return fmt.Sprintf("multicanvas %s (%s)", Version, Commit)
}
