// =============================================================================
// FILE: internal/config/schema.go
// PURPOSE: Configuration schema and defaults. Mirrors original_source's
//          config.py Config.__init_defaults nested address tree (server
//          root, file root, api.{key,version}, database.{directory,name},
//          logging.{directory,name,level,max size,backup count}) as a
//          YAML-tagged Go struct.
// =============================================================================

package config

// ConfigStatic mirrors original_source's ConfigStatic class: values fixed
// at build time, never persisted to the config file.
const (
	ServerName    = "gbmm"
	ServerVersion = "0.1.0"

	APIBaseURL  = "https://www.giantbomb.com/api/"
	APIKeyField = "api_key"
	// APIKeyRegex matches a 40-character hex Giant Bomb API key.
	APIKeyRegex = `^([0-9]|[a-f]){40}$`
)

// UserAgent is sent on every outbound request (spec.md §5).
func UserAgent() string {
	return ServerName + "/" + ServerVersion
}

// APIConfig holds the catalog API credentials.
type APIConfig struct {
	Key     string `yaml:"key"`
	Version string `yaml:"version"`
}

// DatabaseConfig controls where gbmm stores its sqlite databases.
type DatabaseConfig struct {
	Directory string `yaml:"directory"`
	Name      string `yaml:"name"`
}

// LoggingConfig controls log destination, level, and rotation.
type LoggingConfig struct {
	Directory   string `yaml:"directory"`
	Name        string `yaml:"name"`
	Level       string `yaml:"level"`
	MaxSize     int    `yaml:"max size"`
	BackupCount int    `yaml:"backup count"`
}

// CacheConfig controls the opt-in short-TTL cache /api/videos/browse uses
// for its ResourceSelect GET responses (spec.md §6; disabled by default).
type CacheConfig struct {
	Mode      string `yaml:"mode"` // "disabled" (default), "memory", "json", or "sqlite"
	Directory string `yaml:"directory"`
}

// AppConfig is the full nested-address configuration tree, loaded from and
// saved to a YAML file (spec.md's ambient config section).
type AppConfig struct {
	ServerRoot string         `yaml:"server root"`
	FileRoot   string         `yaml:"file root"`
	Port       int            `yaml:"port"`
	API        APIConfig      `yaml:"api"`
	Database   DatabaseConfig `yaml:"database"`
	Logging    LoggingConfig  `yaml:"logging"`
	Cache      CacheConfig    `yaml:"cache"`
}

// DefaultConfig returns the built-in defaults: Config.__init_defaults'
// values plus the Port and Cache settings, which that has no equivalent of.
func DefaultConfig() AppConfig {
	return AppConfig{
		ServerRoot: "./",
		FileRoot:   "files/",
		Port:       8008,
		API: APIConfig{
			Key:     "",
			Version: "1.0",
		},
		Database: DatabaseConfig{
			Directory: "db/",
			Name:      ServerName + ".db",
		},
		Logging: LoggingConfig{
			Directory:   "log/",
			Name:        ServerName + ".log",
			Level:       "INFO",
			MaxSize:     1000,
			BackupCount: 1000,
		},
		Cache: CacheConfig{
			Mode:      "disabled",
			Directory: "cache/",
		},
	}
}
