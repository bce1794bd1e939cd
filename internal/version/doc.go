// Package version exposes autopak build metadata.
//
// Version, Commit and BuildTime are injected with -ldflags "-X" at release time.
package version
