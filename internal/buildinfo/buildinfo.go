// Package buildinfo carries the version stamped in at link time:
//
//	-ldflags "-X ember/internal/buildinfo.Version=v0.3.0 -X ember/internal/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

// Version is set at build time via -ldflags.
var Version = "dev"

// Commit is set at build time via -ldflags.
var Commit = "unknown"

// Date is set at build time via -ldflags.
var Date = "unknown"

// Short returns a compact build identifier for UI/logging.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	return "dev"
}

// String returns the version with commit and date when they are known.
func String() string {
	s := Version
	if s == "" {
		s = "dev"
	}
	if Commit != "" && Commit != "unknown" {
		s += " (" + Commit
		if Date != "" && Date != "unknown" {
			s += ", " + Date
		}
		s += ")"
	}
	return s
}
