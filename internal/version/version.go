// Package version exposes the module's own version string for use as an
// OpenTelemetry instrumentation scope version.
package version

import "runtime/debug"

// Version is the current streamrpc version.
var Version = "0.0.0-dev"

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if dep.Path == "github.com/dogmatiq/streamrpc" {
				Version = dep.Version
			}
		}
	}
}
