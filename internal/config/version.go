package config

import "fmt"

// Build identity, overridden with -ldflags "-X .../internal/config.Version=...".
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is reported by -version, /api/version and the get_version tool.
type VersionInfo struct {
	Version   string `json:"version"`
	Build     string `json:"build"`
	GitCommit string `json:"git_commit"`
}

func Info() VersionInfo {
	return VersionInfo{Version: Version, Build: Build, GitCommit: GitCommit}
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", v.Version, v.Build, v.GitCommit)
}
