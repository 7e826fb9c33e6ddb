// =============================================================================
// FILE: internal/cli/db_cmd.go
// PURPOSE: db subcommand. backup copies the live sqlite database (plus WAL
//          sidecars) to a timestamped file; merge folds another database's
//          rows into the active one. Both call straight into
//          internal/store's backup.go.
// =============================================================================

package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"gbmm/internal/config"
	"gbmm/internal/store"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database maintenance: backup or merge",
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a timestamped copy of the active database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(ConfigPath()); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		dbPath := filepath.Join(config.DatabaseDirAbs(), config.DatabaseName())
		dest, err := store.Backup(dbPath)
		if err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		fmt.Println(dest)
		return nil
	},
}

var dbMergeCmd = &cobra.Command{
	Use:   "merge <source.db>",
	Short: "Merge another gbmm database's rows into the active database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(ConfigPath()); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		dstPath := filepath.Join(config.DatabaseDirAbs(), config.DatabaseName())

		dst, err := store.Open(dstPath)
		if err != nil {
			return fmt.Errorf("open active database: %w", err)
		}
		defer dst.Close()

		src, err := store.Open(args[0])
		if err != nil {
			return fmt.Errorf("open source database %s: %w", args[0], err)
		}
		defer src.Close()

		result, err := store.MergeDatabases(src, dst)
		if err != nil {
			return fmt.Errorf("merge: %w", err)
		}
		fmt.Printf("videos=%d shows=%d categories=%d images=%d files=%d downloads=%d\n",
			result.VideosMerged, result.ShowsMerged, result.CategoriesMerged,
			result.ImagesMerged, result.FilesMerged, result.DownloadsMerged)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbBackupCmd, dbMergeCmd)
}
