// Package version carries build metadata, overridden via ldflags by the
// release pipeline.
package version

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
