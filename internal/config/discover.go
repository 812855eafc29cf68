package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ConfigEnv names an explicit config file, checked before any search path.
const ConfigEnv = "LEADERBOARD_CONFIG"

// Files collects repeated -config flags. Later files override earlier ones.
type Files []string

func (f *Files) String() string { return strings.Join(*f, ",") }

func (f *Files) Set(path string) error {
	*f = append(*f, path)
	return nil
}

// OrDiscover returns f, or the discovered config file for name when no
// -config flag was given.
func (f Files) OrDiscover(name string) Files {
	if len(f) > 0 {
		return f
	}
	if path := Discover(name); path != "" {
		return Files{path}
	}
	return nil
}

// SearchPaths returns candidate locations for a config file named name:
// $LEADERBOARD_CONFIG, next to the binary, then the working directory and
// the Docker layout. Entries resolving to the same absolute path appear once.
func SearchPaths(name string) []string {
	var paths []string
	if env := os.Getenv(ConfigEnv); env != "" {
		paths = append(paths, env)
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		paths = append(paths, filepath.Join(dir, name), filepath.Join(dir, "config", name))
	}
	paths = append(paths, name, filepath.Join("config", name), filepath.Join("docker", name))
	return uniquePaths(paths)
}

func uniquePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		key := p
		if abs, err := filepath.Abs(p); err == nil {
			key = abs
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Discover returns the first existing regular file from SearchPaths, or "".
func Discover(name string) string {
	for _, path := range SearchPaths(name) {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}
	return ""
}
