// =============================================================================
// FILE: internal/store/image.go
// PURPOSE: Image identity-by-URL-tuple upsert. Per spec.md §3, an Image's
//          identity is the tuple of its URL fields; the same image
//          observed twice must dedupe to one row. Grounded on the
//          teacher's internal/db/operations.go ON CONFLICT upsert style
//          and on original_source's Image.get_existing, which matches on
//          the full 9-field tuple.
// =============================================================================

package store

import (
	"context"
	"database/sql"
	"fmt"

	"gbmm/internal/model"
)

// mergeImage finds the existing Image row matching node's full URL tuple,
// or inserts a new one. ON CONFLICT DO UPDATE on the unique tuple makes
// this safe under concurrent callers without a separate existence check.
// DO UPDATE SET image_tags = images.image_tags is a no-op on conflict, not a
// real update: an existing image row is returned unchanged, matching
// original_source's Image.get_existing.
func mergeImage(ctx context.Context, s *Session, node imageNode) (*model.Image, error) {
	_, err := s.Exec(ctx, `INSERT INTO images
		(icon_url, medium_url, original_url, screen_url, screen_large_url, small_url, super_url, thumb_url, tiny_url, image_tags, last_full_refresh)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(icon_url, medium_url, original_url, screen_url, screen_large_url, small_url, super_url, thumb_url, tiny_url)
		DO UPDATE SET image_tags = images.image_tags`,
		node.IconURL, node.MediumURL, node.OriginalURL, node.ScreenURL, node.ScreenLargeURL,
		node.SmallURL, node.SuperURL, node.ThumbURL, node.TinyURL, node.ImageTags)
	if err != nil {
		return nil, fmt.Errorf("store: upsert image: %w", err)
	}

	row := s.QueryRow(ctx, `SELECT id, icon_url, medium_url, original_url, screen_url, screen_large_url, small_url, super_url, thumb_url, tiny_url, image_tags, file_id
		FROM images WHERE icon_url = ? AND medium_url = ? AND original_url = ? AND screen_url = ? AND screen_large_url = ?
		AND small_url = ? AND super_url = ? AND thumb_url = ? AND tiny_url = ?`,
		node.IconURL, node.MediumURL, node.OriginalURL, node.ScreenURL, node.ScreenLargeURL,
		node.SmallURL, node.SuperURL, node.ThumbURL, node.TinyURL)

	var img model.Image
	var fileID sql.NullInt64
	if err := row.Scan(&img.ID, &img.IconURL, &img.MediumURL, &img.OriginalURL, &img.ScreenURL, &img.ScreenLargeURL,
		&img.SmallURL, &img.SuperURL, &img.ThumbURL, &img.TinyURL, &img.ImageTags, &fileID); err != nil {
		return nil, fmt.Errorf("store: read back image: %w", err)
	}
	if fileID.Valid {
		img.FileID = &fileID.Int64
	}
	return &img, nil
}

// GetImage returns the image with the given id, or sql.ErrNoRows.
func GetImage(ctx context.Context, s *Session, id int64) (*model.Image, error) {
	row := s.QueryRow(ctx, `SELECT id, icon_url, medium_url, original_url, screen_url, screen_large_url, small_url, super_url, thumb_url, tiny_url, image_tags, file_id
		FROM images WHERE id = ?`, id)
	var img model.Image
	var fileID sql.NullInt64
	if err := row.Scan(&img.ID, &img.IconURL, &img.MediumURL, &img.OriginalURL, &img.ScreenURL, &img.ScreenLargeURL,
		&img.SmallURL, &img.SuperURL, &img.ThumbURL, &img.TinyURL, &img.ImageTags, &fileID); err != nil {
		return nil, err
	}
	if fileID.Valid {
		img.FileID = &fileID.Int64
	}
	return &img, nil
}

// SetImageFile associates a File row with an Image.
func SetImageFile(ctx context.Context, s *Session, imageID, fileID int64) error {
	_, err := s.Exec(ctx, `UPDATE images SET file_id = ? WHERE id = ?`, fileID, imageID)
	return err
}

// SetVideoFile associates a File row with a Video.
func SetVideoFile(ctx context.Context, s *Session, videoID, fileID int64) error {
	_, err := s.Exec(ctx, `UPDATE videos SET file_id = ? WHERE id = ?`, fileID, videoID)
	return err
}
