// Package version holds build-time identifiers injected via -ldflags.
package version

// Version and Commit are overridden at build time with:
//
//	-ldflags "-X github.com/Chosen17/TraqrPOSCloud/internal/version.Version=... -X .../version.Commit=..."
var (
	Version = "dev"
	Commit  = "unknown"
)
