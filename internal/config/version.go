package config

import "github.com/carlmjohnson/versioninfo"

// Build information, set via -ldflags. Unset values fall back to the
// module build info.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func SetBuildFlags(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date
}

// BuildInfo returns the version, commit and date of the running binary
func BuildInfo() (version, commit, date string) {
	version, commit, date = Version, Commit, Date
	if version == "dev" && versioninfo.Version != "unknown" && versioninfo.Version != "(devel)" {
		version = versioninfo.Version
	}
	if commit == "unknown" && versioninfo.Revision != "unknown" {
		commit = versioninfo.Short()
	}
	if date == "unknown" && !versioninfo.LastCommit.IsZero() {
		date = versioninfo.LastCommit.UTC().Format("2006-01-02T15:04:05Z")
	}
	return version, commit, date
}
