// =============================================================================
// FILE: internal/cli/download_recent.go
// PURPOSE: download-recent subcommand. Subscribes to Messenger video-created
//          events, runs a quick index to catch up with the catalog, then
//          enqueues every video the quick index actually discovered as new.
// =============================================================================

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gbmm/internal/app"
	"gbmm/internal/downloader"
	"gbmm/internal/indexer"
	"gbmm/internal/messenger"
)

var downloadRecentCmd = &cobra.Command{
	Use:   "download-recent <kind>",
	Short: "Run a quick index and download every video it newly discovers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if kind := args[0]; kind != "video" {
			return fmt.Errorf("cli: unsupported download-recent kind %q (only \"video\" is supported)", kind)
		}

		a := app.New()
		a.ConfigPath = ConfigPath()
		a.LogLevelOverride = LogLevel()
		if err := a.Init(); err != nil {
			return fmt.Errorf("init: %w", err)
		}
		defer a.Shutdown()

		sub := a.Messenger.NewSubscriber()
		sub.AddInterest(indexer.SubjectVideo, map[messenger.EventType]bool{messenger.Created: true})
		defer a.Messenger.RemoveSubscriber(sub.UUID)

		ctx := a.Context()
		if _, err := a.Jobs.Start(ctx, indexer.TagQuick); err != nil {
			return fmt.Errorf("start quick index: %w", err)
		}

		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			if _, active := a.Jobs.ActiveByTag(indexer.TagQuick); !active {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}

		msgs, err := a.Messenger.ReceiveAll(sub)
		if err != nil {
			return fmt.Errorf("receive events: %w", err)
		}

		var enqueued int
		for _, msg := range msgs {
			if msg.SubjectType != indexer.SubjectVideo || msg.EventType != messenger.Created {
				continue
			}
			if _, err := a.Downloader.EnqueueVideoWithImages(ctx, msg.SubjectID); err != nil {
				a.Logger().Warn("enqueue failed", "video_id", msg.SubjectID, "error", err)
				continue
			}
			enqueued++
		}

		if enqueued == 0 {
			fmt.Println("quick index found no new videos")
			return nil
		}

		return downloader.RunProgressView(a.Downloader.Tracker(), int64(enqueued))
	},
}

func init() {
	rootCmd.AddCommand(downloadRecentCmd)
}
