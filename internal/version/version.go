// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/persistent-ws/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/persistent-ws/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

// Build-time variables (set via ldflags)
var (
	// Version is the semantic version (e.g., "1.0.0")
	Version = "dev"

	// Commit is the git commit hash (short form)
	Commit = "unknown"
)

// Product is the client name reported in the dial User-Agent.
const Product = "persistent-ws"

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ")"
}

// UserAgent returns the User-Agent header value sent on every dial.
func UserAgent() string {
	return Product + "/" + Version
}
