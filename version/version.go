package version

// will be replaced with the release version when using goreleaser
var version = "development"

// LauncherVersion returns the launcher version
func LauncherVersion() string {
	return version
}
