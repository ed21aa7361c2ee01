// Package version carries build metadata injected with -ldflags.
package version

// Commit is set at build time: -ldflags "-X rep-lookup/internal/version.Commit=<sha>".
var Commit = "dev"
