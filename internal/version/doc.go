// Package version exposes build metadata of the lamplighter binary.
//
// Version, Commit and BuildTime are injected with -ldflags "-X ..." at build
// time and keep their defaults in local builds.
package version
