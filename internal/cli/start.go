// =============================================================================
// FILE: internal/cli/start.go
// PURPOSE: start subcommand. Builds and runs the full App: HTTP surface,
//          background job recovery, indexer and downloader workers. Blocks
//          until SIGINT/SIGTERM, then shuts down gracefully.
// =============================================================================

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"gbmm/internal/app"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the gbmm HTTP service and recover any in-flight jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app.New()
		a.ConfigPath = ConfigPath()
		a.LogLevelOverride = LogLevel()

		if err := a.Init(); err != nil {
			return fmt.Errorf("init: %w", err)
		}
		defer a.Shutdown()

		addr := ":" + strconv.Itoa(a.Config().Port)
		srv := &http.Server{Addr: addr, Handler: a.Handler}

		errCh := make(chan error, 1)
		go func() {
			a.Logger().Info("http service listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
				return
			}
			errCh <- nil
		}()

		select {
		case <-a.Context().Done():
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("http serve: %w", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
