// =============================================================================
// FILE: internal/cli/globals.go
// PURPOSE: Shared CLI state. Global variables and accessors for flag values
//          every subcommand needs: the resolved config path and log level.
// =============================================================================

package cli

import (
	"sync"
)

// ---------------------------------------------------------------------------
// Global CLI state
// ---------------------------------------------------------------------------

var (
	cliMu      sync.RWMutex
	configPath string
	logLevel   string
)

// SetGlobals stores the parsed global flag values for access by every
// subcommand's RunE.
func SetGlobals(config, level string) {
	cliMu.Lock()
	defer cliMu.Unlock()
	configPath = config
	logLevel = level
}

// ConfigPath returns the configured config file path, empty meaning
// "use the default location".
func ConfigPath() string {
	cliMu.RLock()
	defer cliMu.RUnlock()
	return configPath
}

// LogLevel returns the resolved log level (CRITICAL/ERROR/WARN/INFO/DEBUG).
func LogLevel() string {
	cliMu.RLock()
	defer cliMu.RUnlock()
	return logLevel
}
