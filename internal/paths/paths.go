// Package paths resolves the configuration, data and upload directories.
package paths

import (
	"os"
	"path/filepath"
)

// CWD-relative default directory names.
const (
	DefaultConfigDirName  = ".tnr"
	DefaultDataDirName    = ".tnr-data"
	DefaultUploadsDirName = "uploads"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir  = "TNR_CONFIG_DIR"
	EnvDataDir    = "TNR_DATA_DIR"
	EnvUploadsDir = "TNR_UPLOADS_DIR"
)

// getwd is replaced in tests.
var getwd = os.Getwd

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > TNR_CONFIG_DIR env > $(CWD)/.tnr.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return cwdJoin(DefaultConfigDirName)
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > config value > TNR_DATA_DIR env > $(CWD)/.tnr-data.
func ResolveDataDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return cwdJoin(DefaultDataDirName)
}

// ResolveUploadsDir returns the uploads directory following the precedence
// chain: config value > TNR_UPLOADS_DIR env > <dataDir>/uploads.
func ResolveUploadsDir(configValue, dataDir string) (string, error) {
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvUploadsDir); env != "" {
		return filepath.Abs(env)
	}
	return filepath.Join(dataDir, DefaultUploadsDirName), nil
}

func cwdJoin(name string) (string, error) {
	cwd, err := getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, name), nil
}
