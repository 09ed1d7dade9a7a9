// Package version reports the library version and build details.
package version

var (
	// Version is the library version.
	Version = "0.0.1"
	// GitSHA is the git commit SHA, set with -ldflags at build time.
	GitSHA = "unknown"
	// BuildTime is the build timestamp, set with -ldflags at build time.
	BuildTime = "unknown"
)

// Mobile is the version reported by the gomobile package.
func Mobile() string {
	return Version + "-mobile"
}
