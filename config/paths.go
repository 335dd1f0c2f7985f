package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
)

// GetConfigDir returns the platform-specific configuration directory.
// OPENDOCS_CONFIG_DIR takes precedence.
// Linux: ~/.config/opendocs
// Mac: ~/Library/Application Support/opendocs
// Windows: %LOCALAPPDATA%\opendocs
func GetConfigDir() string {
	if dir := os.Getenv("OPENDOCS_CONFIG_DIR"); dir != "" {
		return ExpandPath(dir)
	}
	return filepath.Join(xdg.ConfigHome, "opendocs")
}

// GetDefaultDataDir returns the platform-specific default data directory
// Linux: ~/.local/share/opendocs
// Mac: ~/Library/Application Support/opendocs
// Windows: %LOCALAPPDATA%\opendocs
func GetDefaultDataDir() string {
	return filepath.Join(xdg.DataHome, "opendocs")
}

// GetSettingsFilePath returns the path to settings.toml
func GetSettingsFilePath() string {
	return filepath.Join(GetConfigDir(), "settings.toml")
}

// GetHomeDir returns the user's home directory across platforms
// Windows: %USERPROFILE% (C:\Users\username)
// Linux/Mac: $HOME (/home/username)
func GetHomeDir() string {
	if runtime.GOOS == "windows" {
		home := os.Getenv("USERPROFILE")
		if home == "" {
			// Fallback: HOMEDRIVE + HOMEPATH
			home = os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
		}
		if home == "" {
			home = "C:\\"
		}
		return home
	}
	home := os.Getenv("HOME")
	if home == "" {
		home = "/"
	}
	return home
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home := GetHomeDir()
		path = filepath.Join(home, path[2:])
	}

	path = os.ExpandEnv(path)

	return filepath.Clean(path)
}

// EnsureDir creates a directory if it doesn't exist (0700 - user-only access)
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0700)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDataDirPermissions ensures data directory has 0700 permissions
func EnsureDataDirPermissions(dataDir string) error {
	info, err := os.Stat(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(dataDir, 0700)
		}
		return err
	}

	if runtime.GOOS == "windows" {
		return nil
	}

	currentPerms := info.Mode().Perm()
	if currentPerms != 0700 {
		return os.Chmod(dataDir, 0700)
	}
	return nil
}
