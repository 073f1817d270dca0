package fileutil

import (
	"os"
	"path/filepath"
)

// SystemConfigDir is where a packaged install keeps its configuration
const SystemConfigDir = "/etc/formrelay"

// SearchPathsOptional returns the first path that exists as a regular file,
// or an empty string when none does.
func SearchPathsOptional(paths []string) string {
	for _, path := range paths {
		if FileExists(path) {
			return path
		}
	}
	return ""
}

// DefaultConfigPaths returns standard config search paths for a given filename.
// Search order:
// 1. Current directory (./<filename>)
// 2. Config subdirectory (./config/<filename>)
// 3. System-wide config (/etc/formrelay/<filename>)
func DefaultConfigPaths(filename string) []string {
	return []string{
		filepath.Join(".", filename),
		filepath.Join(".", "config", filename),
		filepath.Join(SystemConfigDir, filename),
	}
}

// DefaultEnvFiles lists the .env files loaded at startup, in order.
// Earlier files win because loading never overrides a set variable.
func DefaultEnvFiles() []string {
	return []string{
		filepath.Join(".", ".env"),
		filepath.Join(SystemConfigDir, "formrelay.env"),
	}
}

// FindConfigOptional searches for a config file in default locations.
func FindConfigOptional(filename string) string {
	return SearchPathsOptional(DefaultConfigPaths(filename))
}

// FileExists checks if a file exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
