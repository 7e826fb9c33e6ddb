// =============================================================================
// FILE: internal/cli/download.go
// PURPOSE: download subcommand. Applies a filter expression to the video
//          resource, enqueues every matching video (plus its images) on the
//          downloader, then blocks showing a progress view until every
//          enqueued item finishes.
// =============================================================================

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gbmm/internal/app"
	"gbmm/internal/config"
	"gbmm/internal/downloader"
	"gbmm/internal/requester"
	"gbmm/internal/resource"
	"gbmm/internal/store"
)

var downloadCmd = &cobra.Command{
	Use:   "download <kind> <filter>",
	Short: `Download media matching a filter expression ("k=v1,v2-v3;k2=...")`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, filterExpr := args[0], args[1]
		if kind != "video" {
			return fmt.Errorf("cli: unsupported download kind %q (only \"video\" is supported)", kind)
		}

		pairs, err := ParseFilterString(filterExpr)
		if err != nil {
			return err
		}

		a := app.New()
		a.ConfigPath = ConfigPath()
		a.LogLevelOverride = LogLevel()
		if err := a.Init(); err != nil {
			return fmt.Errorf("init: %w", err)
		}
		defer a.Shutdown()

		sel := resource.New(a.Req, config.APIBaseURL, config.APIKeyField, a.Config().API.Key, "video", "/videos").
			Priority(requester.Normal)
		for _, p := range pairs {
			sel.Filter(p[0], p[1])
		}

		var enqueued int
		ctx := a.Context()
		for {
			raw, err := sel.Next(ctx)
			if err == resource.ErrEndOfResults {
				break
			}
			if err != nil {
				return fmt.Errorf("fetch: %w", err)
			}
			nodes, err := store.DecodeVideoList(raw)
			if err != nil {
				return fmt.Errorf("decode: %w", err)
			}
			if err := a.DB.WithSession(ctx, func(s *store.Session) error {
				_, _, err := store.MergeVideoBatchCreated(ctx, s, nodes)
				return err
			}); err != nil {
				return fmt.Errorf("merge: %w", err)
			}
			for _, n := range nodes {
				if _, err := a.Downloader.EnqueueVideoWithImages(ctx, n.ID); err != nil {
					a.Logger().Warn("enqueue failed", "video_id", n.ID, "error", err)
					continue
				}
				enqueued++
			}
		}

		if enqueued == 0 {
			fmt.Println("no videos matched the given filter")
			return nil
		}

		return downloader.RunProgressView(a.Downloader.Tracker(), int64(enqueued))
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}
