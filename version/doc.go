// Package version reports the build of a hypermodel application binary.
//
// The fields are set at link time and fall back to the VCS stamp Go embeds
// in the binary:
//
//	go build -ldflags "-X github.com/kbukum/hypermodel/version.Version=1.2.0"
package version
