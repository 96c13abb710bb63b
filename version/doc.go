// Package version exposes the build identity of the mediaflow binary.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/mediaflow/version.Version=1.2.0"
//
// Anything left unset falls back to the VCS stamp in the build info.
package version
