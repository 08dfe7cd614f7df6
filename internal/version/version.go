// Package version holds the installer's own version.
package version

// Version is the running installer version. Release builds override it with
// -ldflags "-X github.com/caedis/fezmod-installer/internal/version.Version=...".
var Version = "16.6.0"
