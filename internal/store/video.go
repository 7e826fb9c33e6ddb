// =============================================================================
// FILE: internal/store/video.go
// PURPOSE: Video/VideoShow/VideoCategory/Image entity merge. Implements
//          spec.md §4.A's merge rule: if a row with the same id exists,
//          return it unchanged; otherwise construct a new row from the
//          fields present, recursing into nested kinds, stamp
//          last_full_refresh, and return it. MergeVideoBatch implements
//          the §9 "generator-based dedup" redesign as an explicit loop
//          inside one transaction, upserting and flushing after each item
//          so repeated nested references within a batch collapse to one
//          row instead of creating duplicates.
// =============================================================================

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gbmm/internal/model"
)

// publishDateLayout matches the upstream API's date format, e.g.
// "2024-03-01 12:00:00".
const publishDateLayout = "2006-01-02 15:04:05"

func parsePublishDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(publishDateLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// GetVideo returns the video with the given id, or sql.ErrNoRows.
func GetVideo(ctx context.Context, s *Session, id int64) (*model.Video, error) {
	row := s.QueryRow(ctx, `SELECT id, guid, title, deck, publish_date, hd_url, high_url, low_url,
		image_id, video_show_id, video_category_id, file_id, site_detail_url, last_full_refresh
		FROM videos WHERE id = ?`, id)
	return scanVideo(row)
}

func scanVideo(row *sql.Row) (*model.Video, error) {
	var v model.Video
	var publishDate, lastRefresh string
	var imageID, showID, categoryID, fileID sql.NullInt64
	if err := row.Scan(&v.ID, &v.Guid, &v.Title, &v.Deck, &publishDate, &v.HDURL, &v.HighURL, &v.LowURL,
		&imageID, &showID, &categoryID, &fileID, &v.SiteDetailURL, &lastRefresh); err != nil {
		return nil, err
	}
	v.PublishDate = parsePublishDate(publishDate)
	v.LastFullRefresh = parsePublishDate(lastRefresh)
	if imageID.Valid {
		v.ImageID = &imageID.Int64
	}
	if showID.Valid {
		v.VideoShowID = &showID.Int64
	}
	if categoryID.Valid {
		v.VideoCategoryID = &categoryID.Int64
	}
	if fileID.Valid {
		v.FileID = &fileID.Int64
	}
	return &v, nil
}

// MergeVideo implements the per-entity merge rule: returns the existing
// row unchanged if id is already present, otherwise inserts a new row
// built from node, recursing into the nested show/category/image.
func MergeVideo(ctx context.Context, s *Session, node videoNode) (*model.Video, error) {
	v, _, err := mergeVideo(ctx, s, node)
	return v, err
}

// mergeVideo is MergeVideo's implementation, additionally reporting
// whether node.ID was newly inserted (true) or already present (false) —
// used by internal/indexer to publish Messenger Created events only for
// videos genuinely new to the mirror.
func mergeVideo(ctx context.Context, s *Session, node videoNode) (*model.Video, bool, error) {
	if existing, err := GetVideo(ctx, s, node.ID); err == nil {
		return existing, false, nil
	} else if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("store: get video %d: %w", node.ID, err)
	}

	var imageID, showID, categoryID sql.NullInt64

	if !node.Image.empty() {
		img, err := mergeImage(ctx, s, node.Image)
		if err != nil {
			return nil, false, fmt.Errorf("store: merge video %d image: %w", node.ID, err)
		}
		imageID = sql.NullInt64{Int64: img.ID, Valid: true}
	}
	if node.Show.ID != 0 {
		show, err := mergeVideoShow(ctx, s, node.Show)
		if err != nil {
			return nil, false, fmt.Errorf("store: merge video %d show: %w", node.ID, err)
		}
		showID = sql.NullInt64{Int64: show.ID, Valid: true}
	}
	if node.Category.ID != 0 {
		cat, err := mergeVideoCategory(ctx, s, node.Category)
		if err != nil {
			return nil, false, fmt.Errorf("store: merge video %d category: %w", node.ID, err)
		}
		categoryID = sql.NullInt64{Int64: cat.ID, Valid: true}
	}

	now := time.Now().UTC()
	guid := model.Guid(model.TypeIDVideo, node.ID)
	_, err := s.Exec(ctx, `INSERT INTO videos
		(id, guid, title, deck, publish_date, hd_url, high_url, low_url, image_id, video_show_id, video_category_id, site_detail_url, last_full_refresh)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		node.ID, guid, node.Name, node.Deck, node.PublishDate, node.HDURL, node.HighURL, node.LowURL,
		nullableInt64(imageID), nullableInt64(showID), nullableInt64(categoryID), node.SiteDetailURL, now.Format(publishDateLayout))
	if err != nil {
		return nil, false, fmt.Errorf("store: insert video %d: %w", node.ID, err)
	}

	v, err := GetVideo(ctx, s, node.ID)
	return v, true, err
}

// MergeVideoBatch merges every node in nodes inside the caller's already-
// open session, upserting one item at a time so that a repeated nested
// image/show/category reference within the same batch collapses to one
// row (the explicit-loop replacement for the source's commit-as-you-go
// generator, per §9).
func MergeVideoBatch(ctx context.Context, s *Session, nodes []videoNode) ([]*model.Video, error) {
	out, _, err := MergeVideoBatchCreated(ctx, s, nodes)
	return out, err
}

// MergeVideoBatchCreated is MergeVideoBatch plus the subset of node IDs
// that were newly inserted rather than already present, so callers (the
// indexer) can publish Messenger Created events for only the videos
// genuinely new to the mirror.
func MergeVideoBatchCreated(ctx context.Context, s *Session, nodes []videoNode) (videos []*model.Video, createdIDs []int64, err error) {
	out := make([]*model.Video, 0, len(nodes))
	var created []int64
	for _, n := range nodes {
		v, isNew, err := mergeVideo(ctx, s, n)
		if err != nil {
			return out, created, err
		}
		out = append(out, v)
		if isNew {
			created = append(created, v.ID)
		}
	}
	return out, created, nil
}

func mergeVideoShow(ctx context.Context, s *Session, node videoShowNode) (*model.VideoShow, error) {
	row := s.QueryRow(ctx, `SELECT id, guid, title, deck, logo_url, site_detail_url, last_full_refresh FROM video_shows WHERE id = ?`, node.ID)
	var vs model.VideoShow
	var lastRefresh string
	err := row.Scan(&vs.ID, &vs.Guid, &vs.Title, &vs.Deck, &vs.LogoURL, &vs.SiteDetailURL, &lastRefresh)
	if err == nil {
		vs.LastFullRefresh = parsePublishDate(lastRefresh)
		return &vs, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	now := time.Now().UTC()
	guid := model.Guid(model.TypeIDVideoShow, node.ID)
	if _, err := s.Exec(ctx, `INSERT INTO video_shows (id, guid, title, deck, logo_url, site_detail_url, last_full_refresh) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		node.ID, guid, node.Title, node.Deck, node.LogoURL, node.SiteDetailURL, now.Format(publishDateLayout)); err != nil {
		return nil, err
	}
	return &model.VideoShow{ID: node.ID, Guid: guid, Title: node.Title, Deck: node.Deck, LogoURL: node.LogoURL, SiteDetailURL: node.SiteDetailURL, LastFullRefresh: now}, nil
}

func mergeVideoCategory(ctx context.Context, s *Session, node videoCategoryNode) (*model.VideoCategory, error) {
	row := s.QueryRow(ctx, `SELECT id, guid, name, deck, site_detail_url, last_full_refresh FROM video_categories WHERE id = ?`, node.ID)
	var vc model.VideoCategory
	var lastRefresh string
	err := row.Scan(&vc.ID, &vc.Guid, &vc.Name, &vc.Deck, &vc.SiteDetailURL, &lastRefresh)
	if err == nil {
		vc.LastFullRefresh = parsePublishDate(lastRefresh)
		return &vc, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	now := time.Now().UTC()
	guid := model.Guid(model.TypeIDVideoCategory, node.ID)
	if _, err := s.Exec(ctx, `INSERT INTO video_categories (id, guid, name, deck, site_detail_url, last_full_refresh) VALUES (?, ?, ?, ?, ?, ?)`,
		node.ID, guid, node.Name, node.Deck, node.SiteDetailURL, now.Format(publishDateLayout)); err != nil {
		return nil, err
	}
	return &model.VideoCategory{ID: node.ID, Guid: guid, Name: node.Name, Deck: node.Deck, SiteDetailURL: node.SiteDetailURL, LastFullRefresh: now}, nil
}

func nullableInt64(n sql.NullInt64) any {
	if !n.Valid {
		return nil
	}
	return n.Int64
}
