package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// StoragePaths contains paths for application storage
type StoragePaths struct {
	DatabasePath string
	CachePath    string
	LogPath      string
}

// GetDefaultStoragePaths returns default storage paths using XDG base directories
func GetDefaultStoragePaths() StoragePaths {
	return StoragePaths{
		DatabasePath: filepath.Join(xdg.StateHome, "parley", "records.db"),
		CachePath:    filepath.Join(xdg.DataHome, "parley", "cache"),
		LogPath:      filepath.Join(xdg.StateHome, "parley", "logs"),
	}
}

// GetDefaultDataPath returns the default data directory path
func GetDefaultDataPath() string {
	return filepath.Join(xdg.DataHome, "parley")
}
