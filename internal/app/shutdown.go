// =============================================================================
// FILE: internal/app/shutdown.go
// PURPOSE: Graceful shutdown. Coordinates cleanup of all subsystems in the
//          correct order.
// =============================================================================

package app

import (
	"gbmm/internal/logging"
)

// ---------------------------------------------------------------------------
// Shutdown
// ---------------------------------------------------------------------------

// Shutdown performs graceful cleanup of all subsystems.
func (a *App) Shutdown() {
	if a.logger != nil {
		a.logger.Info("shutting down")
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil && a.logger != nil {
			a.logger.Warn("error closing store", "error", err)
		}
	}

	logging.Close()

	a.cancel()
}
