// =============================================================================
// FILE: internal/cli/root.go
// PURPOSE: Root cobra command. Defines the top-level CLI command, persistent
//          log-level flags, and the command tree structure (spec.md's CLI
//          section: start / download / download-recent / db).
// =============================================================================

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gbmm/pkg/version"
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

var rootCmd = &cobra.Command{
	Use:   "gbmm",
	Short: "gbmm — Giant Bomb media indexer and downloader",
	Long:  `gbmm indexes the Giant Bomb video catalog into a local mirror and downloads media from it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		SetGlobals(configPathFlag, resolveLogLevel())
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	configPathFlag string
	critical       bool
	errorLevel     bool
	warn           bool
	info           bool
	debug          bool
)

// resolveLogLevel picks the most verbose of the level flags that was set,
// defaulting to INFO when none was given, matching spec.md's
// --critical/--error/--warn/--info/--debug global flags.
func resolveLogLevel() string {
	switch {
	case debug:
		return "DEBUG"
	case info:
		return "INFO"
	case warn:
		return "WARN"
	case errorLevel:
		return "ERROR"
	case critical:
		return "CRITICAL"
	default:
		return "INFO"
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPathFlag, "config", "c", "", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&critical, "critical", false, "Log at CRITICAL level only")
	rootCmd.PersistentFlags().BoolVar(&errorLevel, "error", false, "Log at ERROR level and above")
	rootCmd.PersistentFlags().BoolVar(&warn, "warn", false, "Log at WARN level and above")
	rootCmd.PersistentFlags().BoolVar(&info, "info", false, "Log at INFO level and above (default)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log at DEBUG level and above")

	rootCmd.Version = version.String()
}

// Root returns the root cobra command for adding sub-commands.
func Root() *cobra.Command {
	return rootCmd
}
