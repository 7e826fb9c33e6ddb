// =============================================================================
// FILE: internal/config/env/path.go
// PURPOSE: Environment-variable overrides for where gbmm finds its config
//          file, read before the YAML config itself has been loaded.
//          Ports original_source/config.py's CONFIG_FILE_PATH constant.
// =============================================================================

package env

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the directory gbmm looks in for its config file absent
// an explicit --config flag, overridable via GBMM_CONFIG_DIR.
func ConfigDir() string {
	if override := GetString("GBMM_CONFIG_DIR", ""); override != "" {
		return override
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/gbmm"
	}
	return filepath.Join(homeDir, ".config", "gbmm")
}

// ConfigFilePath returns a full override path for the config file,
// bypassing ConfigDir entirely when set (GBMM_CONFIG_FILE).
func ConfigFilePath() string {
	return GetString("GBMM_CONFIG_FILE", "")
}
