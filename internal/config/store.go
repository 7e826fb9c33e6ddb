// =============================================================================
// FILE: internal/config/store.go
// PURPOSE: Dotted-address get/set/dump over AppConfig, implementing
//          internal/httpapi's ConfigStore interface. Ports
//          original_source/config.py's Config.get/modify/dump_values
//          address resolution (a dict walk there; an explicit switch here
//          since AppConfig's shape is fixed and known at compile time).
// =============================================================================

package config

import "fmt"

// Store is the httpapi.ConfigStore implementation backed by the process
// global AppConfig.
type Store struct{}

// NewStore constructs a Store. Stateless; every call reads/writes through
// Get/Update.
func NewStore() *Store { return &Store{} }

// DumpAll returns every address and its current value, matching
// Config.dump_values' nested-to-flat shape flattened for JSON transport.
func (Store) DumpAll() map[string]any {
	cfg := Get()
	return map[string]any{
		"server root":          cfg.ServerRoot,
		"file root":            cfg.FileRoot,
		"api.key":              cfg.API.Key,
		"api.version":          cfg.API.Version,
		"database.directory":   cfg.Database.Directory,
		"database.name":        cfg.Database.Name,
		"logging.directory":    cfg.Logging.Directory,
		"logging.name":         cfg.Logging.Name,
		"logging.level":        cfg.Logging.Level,
		"logging.max size":     cfg.Logging.MaxSize,
		"logging.backup count": cfg.Logging.BackupCount,
		"cache.mode":           cfg.Cache.Mode,
		"cache.directory":      cfg.Cache.Directory,
	}
}

// Modify updates the config item at address and persists the whole file,
// matching Config.modify (update + ConfigFile.save).
func (Store) Modify(address string, value any) (any, error) {
	cfg := *Get()

	str := func() (string, error) {
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("config: invalid type for configuration item %q", address)
		}
		return s, nil
	}
	integer := func() (int, error) {
		switch v := value.(type) {
		case int:
			return v, nil
		case float64:
			return int(v), nil
		default:
			return 0, fmt.Errorf("config: invalid type for configuration item %q", address)
		}
	}

	switch address {
	case "server root":
		v, err := str()
		if err != nil {
			return nil, err
		}
		cfg.ServerRoot = v
	case "file root":
		v, err := str()
		if err != nil {
			return nil, err
		}
		cfg.FileRoot = v
	case "api.key":
		v, err := str()
		if err != nil {
			return nil, err
		}
		cfg.API.Key = v
	case "api.version":
		v, err := str()
		if err != nil {
			return nil, err
		}
		cfg.API.Version = v
	case "database.directory":
		v, err := str()
		if err != nil {
			return nil, err
		}
		cfg.Database.Directory = v
	case "database.name":
		v, err := str()
		if err != nil {
			return nil, err
		}
		cfg.Database.Name = v
	case "logging.directory":
		v, err := str()
		if err != nil {
			return nil, err
		}
		cfg.Logging.Directory = v
	case "logging.name":
		v, err := str()
		if err != nil {
			return nil, err
		}
		cfg.Logging.Name = v
	case "logging.level":
		v, err := str()
		if err != nil {
			return nil, err
		}
		cfg.Logging.Level = v
	case "logging.max size":
		v, err := integer()
		if err != nil {
			return nil, err
		}
		cfg.Logging.MaxSize = v
	case "logging.backup count":
		v, err := integer()
		if err != nil {
			return nil, err
		}
		cfg.Logging.BackupCount = v
	case "cache.mode":
		v, err := str()
		if err != nil {
			return nil, err
		}
		cfg.Cache.Mode = v
	case "cache.directory":
		v, err := str()
		if err != nil {
			return nil, err
		}
		cfg.Cache.Directory = v
	default:
		return nil, fmt.Errorf("config: invalid address part in address %q", address)
	}

	if err := Update(&cfg); err != nil {
		return nil, err
	}
	return value, nil
}
