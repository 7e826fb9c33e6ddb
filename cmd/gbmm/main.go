// =============================================================================
// FILE: cmd/gbmm/main.go
// PURPOSE: Entry point for the gbmm server/CLI. Parses arguments and
//          delegates to the appropriate subcommand.
// =============================================================================

package main

import (
	"gbmm/internal/cli"
)

// main is the application entry point.
//
// Exit codes:
//   - 0: Successful execution
//   - 1: General error (CLI parse failure, runtime error)
func main() {
	cli.Execute()
}
