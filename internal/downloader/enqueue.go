// =============================================================================
// FILE: internal/downloader/enqueue.go
// PURPOSE: Enqueue API (spec.md §4.G). Grounded on original_source's
//          server/app/downloads.py: download_video_with_images picks the
//          best available playback quality field and enqueues every
//          present image field alongside it.
// =============================================================================

package downloader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"gbmm/internal/model"
	"gbmm/internal/requester"
	"gbmm/internal/resource"
	"gbmm/internal/store"
)

// Enqueue queues a single (kind, id, urlField) download. kind is "video"
// or "image"; urlField names one of that kind's URL fields (e.g.
// "hd_url", "original_url"). Returns ErrUnsupportedKind for anything
// else, matching the original's DownloadRequestData.validate_object_type.
var ErrUnsupportedKind = errors.New("downloader: unsupported object kind")

func (d *Downloader) Enqueue(ctx context.Context, kind string, id int64, urlField string) (*model.Download, error) {
	var dl *model.Download
	err := d.db.WithSession(ctx, func(s *store.Session) error {
		sourceURL, name, err := d.resolveField(ctx, s, kind, id, urlField)
		if err != nil {
			return err
		}
		if sourceURL == "" {
			return fmt.Errorf("downloader: %s %d has no value for field %q", kind, id, urlField)
		}
		dl, err = store.CreateDownload(ctx, s, kind, id, urlField, sourceURL, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	d.notify()
	return dl, nil
}

func (d *Downloader) resolveField(ctx context.Context, s *store.Session, kind string, id int64, urlField string) (sourceURL, name string, err error) {
	switch kind {
	case "video":
		v, err := store.GetVideo(ctx, s, id)
		if err != nil {
			return "", "", err
		}
		return v.Field(urlField), v.Title, nil
	case "image":
		img, err := store.GetImage(ctx, s, id)
		if err != nil {
			return "", "", err
		}
		return img.Field(urlField), fmt.Sprintf("image-%d", img.ID), nil
	default:
		return "", "", ErrUnsupportedKind
	}
}

// EnqueueVideoWithImages enqueues a video at its best available playback
// quality (model.VideoFieldOrder, best first) plus every present field of
// its associated image, ported directly from download_video_with_images.
// Returns the video's own download record; the image downloads are
// enqueued as a side effect.
func (d *Downloader) EnqueueVideoWithImages(ctx context.Context, videoID int64) (*model.Download, error) {
	if err := d.ensureVideoIndexed(ctx, videoID); err != nil {
		return nil, err
	}

	var primary *model.Download
	err := d.db.WithSession(ctx, func(s *store.Session) error {
		v, err := store.GetVideo(ctx, s, videoID)
		if err != nil {
			return err
		}

		field := bestField(v, model.VideoFieldOrder)
		if field == "" {
			return fmt.Errorf("downloader: could not determine video download URL for video %d", videoID)
		}

		primary, err = store.CreateDownload(ctx, s, "video", v.ID, field, v.Field(field), v.Title)
		if err != nil {
			return err
		}

		if v.ImageID == nil {
			return nil
		}
		img, err := store.GetImage(ctx, s, *v.ImageID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		for _, f := range model.ImageFieldOrder {
			val := img.Field(f)
			if val == "" {
				continue
			}
			if _, err := store.CreateDownload(ctx, s, "image", img.ID, f, val, v.Title+" (image)"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.notify()
	return primary, nil
}

// ensureVideoIndexed resolves the target entity before enqueueing it
// (spec.md §4.G), matching the original's /api/downloads/enqueue handler
// (session.get(Video, id); if None, GBAPI.get_one + from_api_generator):
// if videoID isn't in the local mirror yet, fetch it from upstream by id
// and merge it in before proceeding.
func (d *Downloader) ensureVideoIndexed(ctx context.Context, videoID int64) error {
	var missing bool
	err := d.db.WithSession(ctx, func(s *store.Session) error {
		_, err := store.GetVideo(ctx, s, videoID)
		if errors.Is(err, sql.ErrNoRows) {
			missing = true
			return nil
		}
		return err
	})
	if err != nil || !missing {
		return err
	}

	if d.req == nil {
		return fmt.Errorf("downloader: video %d is not indexed locally", videoID)
	}

	sel := resource.New(d.req, d.baseURL, d.apiKeyField, d.apiKey, "video", "/videos").
		Priority(requester.Normal).
		Filter("id", strconv.FormatInt(videoID, 10))

	raw, err := sel.Next(ctx)
	if errors.Is(err, resource.ErrEndOfResults) {
		return fmt.Errorf("downloader: video %d not found upstream", videoID)
	}
	if err != nil {
		return fmt.Errorf("downloader: fetch video %d: %w", videoID, err)
	}

	nodes, err := store.DecodeVideoList(raw)
	if err != nil {
		return fmt.Errorf("downloader: decode video %d: %w", videoID, err)
	}

	return d.db.WithSession(ctx, func(s *store.Session) error {
		_, _, err := store.MergeVideoBatchCreated(ctx, s, nodes)
		return err
	})
}

// bestField returns the first field in order that has a non-empty value
// on v, matching the original's best-quality-first linear scan.
func bestField(v *model.Video, order []string) string {
	for _, f := range order {
		if v.Field(f) != "" {
			return f
		}
	}
	return ""
}
