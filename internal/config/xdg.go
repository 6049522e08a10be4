package config

import (
	"log/slog"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"
)

const appDir = "riffle"

// XDGDirs provides XDG Base Directory compliant paths for riffle
type XDGDirs struct {
	fs afero.Fs
}

// NewXDGDirs creates a new XDG directory manager; fs is used to create directories
func NewXDGDirs(fs afero.Fs) *XDGDirs {
	return &XDGDirs{fs: fs}
}

// GetCachePath returns the cache directory path for a specific purpose
func (x *XDGDirs) GetCachePath(purpose string) string {
	cachePath := filepath.Join(xdg.CacheHome, appDir, purpose)
	slog.Debug("generated cache path", "purpose", purpose, "cache_path", cachePath)
	return cachePath
}

// GetConfigPaths returns prioritized paths where config files can be found:
// the user config dir, then the system config dirs
func (x *XDGDirs) GetConfigPaths(filename string) []string {
	paths := []string{filepath.Join(xdg.ConfigHome, appDir, filename)}
	for _, configDir := range xdg.ConfigDirs {
		paths = append(paths, filepath.Join(configDir, appDir, filename))
	}

	slog.Debug("generated config paths",
		"filename", filename,
		"total_paths", len(paths),
		"user_path", paths[0],
		"system_paths", len(xdg.ConfigDirs))

	return paths
}

// CreateCacheDir creates the cache directory for a specific purpose and returns its path
func (x *XDGDirs) CreateCacheDir(purpose string) (string, error) {
	cachePath := x.GetCachePath(purpose)

	if err := x.fs.MkdirAll(cachePath, 0755); err != nil {
		slog.Error("failed to create cache directory", "path", cachePath, "error", err)
		return "", err
	}

	slog.Debug("cache directory ready", "path", cachePath)
	return cachePath, nil
}
