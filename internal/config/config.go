// =============================================================================
// FILE: internal/config/config.go
// PURPOSE: Core configuration management. Loads/saves the nested-address
//          YAML config file and exposes a process-global singleton, kept
//          in the teacher's Init/Get/RWMutex shape. Ports
//          original_source/config.py's ConfigFile.load/save plus the
//          module-level config singleton at the bottom of that file.
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"gbmm/internal/config/env"
)

var (
	globalConfig *AppConfig
	configMu     sync.RWMutex
	configPath   string
)

// Init loads the configuration from the config file, merging with defaults.
// A missing config file is created holding the defaults. GBMM_ROOT and
// GBMM_FILES, when set, override the server root and file root.
// Must be called before any other config functions.
func Init(customPath string) error {
	configMu.Lock()
	defer configMu.Unlock()

	cfg := DefaultConfig()

	if customPath != "" {
		configPath = customPath
	} else if envPath := env.ConfigFilePath(); envPath != "" {
		configPath = envPath
	} else {
		configPath = filepath.Join(env.ConfigDir(), "config.yaml")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("config: read %s: %w", configPath, err)
		}
		if err := writeConfigFile(&cfg); err != nil {
			return err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", configPath, err)
	}

	if v := env.GetString("GBMM_ROOT", ""); v != "" {
		cfg.ServerRoot = v
	}
	if v := env.GetString("GBMM_FILES", ""); v != "" {
		cfg.FileRoot = v
	}

	globalConfig = &cfg
	return nil
}

// Get returns the current active configuration. Falls back to defaults if
// Init has not been called, matching the teacher's safe-fallback shape.
func Get() *AppConfig {
	configMu.RLock()
	defer configMu.RUnlock()
	if globalConfig == nil {
		cfg := DefaultConfig()
		return &cfg
	}
	return globalConfig
}

// ConfigPath returns the resolved config file path.
func ConfigPath() string {
	configMu.RLock()
	defer configMu.RUnlock()
	return configPath
}

// ServerRootAbs returns the server root as an absolute path.
func ServerRootAbs() string {
	v := Get().ServerRoot
	abs, err := filepath.Abs(v)
	if err != nil {
		return v
	}
	return abs
}

// resolveUnderRoot mirrors original_source's `v if os.path.isabs(v) else
// os.path.join(SERVER_ROOT, v)` pattern used by DATABASE_DIR/FILE_ROOT/LOG_DIR.
func resolveUnderRoot(v string) string {
	if filepath.IsAbs(v) {
		return v
	}
	return filepath.Join(ServerRootAbs(), v)
}

// DatabaseDirAbs returns the sqlite database directory, resolved relative
// to the server root if not already absolute.
func DatabaseDirAbs() string {
	return resolveUnderRoot(Get().Database.Directory)
}

// DatabaseName returns the database filename, always ending in ".db".
func DatabaseName() string {
	v := Get().Database.Name
	if filepath.Ext(v) != ".db" {
		return v + ".db"
	}
	return v
}

// FileRootAbs returns the directory downloaded media is stored under.
func FileRootAbs() string {
	return resolveUnderRoot(Get().FileRoot)
}

// LogDirAbs returns the log directory, resolved relative to the server root.
func LogDirAbs() string {
	return resolveUnderRoot(Get().Logging.Directory)
}

// CacheDirAbs returns the response-cache directory, resolved relative to
// the server root. Only consulted when Cache.Mode is "sqlite" or "json".
func CacheDirAbs() string {
	return resolveUnderRoot(Get().Cache.Directory)
}

// LogFileName returns the log filename, always ending in ".log".
func LogFileName() string {
	v := Get().Logging.Name
	if filepath.Ext(v) != ".log" {
		return v + ".log"
	}
	return v
}

// Update replaces the global configuration and writes it to disk.
func Update(cfg *AppConfig) error {
	configMu.Lock()
	defer configMu.Unlock()
	globalConfig = cfg
	return writeConfigFile(cfg)
}

func writeConfigFile(cfg *AppConfig) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("config: create dir %s: %w", dir, err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", configPath, err)
	}
	return nil
}
