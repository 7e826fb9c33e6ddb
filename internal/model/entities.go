// =============================================================================
// FILE: internal/model/entities.go
// PURPOSE: Domain entity types for the catalog mirror (videos, shows,
//          categories, images) plus the physical File and Download records.
//          Ports the entity shape described in original_source's
//          server/database.py (GBEntity/GBDownloadable/Video/Image/File/
//          Download) into a tagged-variant form: each kind is a distinct Go
//          struct with statically-known fields, rather than the source's
//          runtime hasattr/getattr field shuttling.
// =============================================================================

package model

import (
	"strconv"
	"time"
)

// TypeID is the stable numeric kind tag used to build an entity's Guid
// and to key the cross-kind reference registry.
type TypeID int

// Known entity type IDs, ported from original_source's per-class
// __type_id__ declarations.
const (
	TypeIDVideo         TypeID = 2300
	TypeIDVideoShow     TypeID = 2350
	TypeIDVideoCategory TypeID = 2360
	TypeIDImage         TypeID = 920000
)

// Guid returns the stable cross-kind identifier "<type-id>-<id>".
func Guid(t TypeID, id int64) string {
	return formatGuid(t, id)
}

// VideoShow is a named grouping of videos (e.g. a recurring series).
type VideoShow struct {
	ID               int64
	Guid             string
	Title            string
	Deck             string
	LogoURL          string
	SiteDetailURL    string
	LastFullRefresh  time.Time
}

// VideoCategory is a topical grouping of videos.
type VideoCategory struct {
	ID              int64
	Guid            string
	Name            string
	Deck            string
	SiteDetailURL   string
	LastFullRefresh time.Time
}

// Image is a downloadable image. It has no upstream id: its identity is
// the tuple of its URL fields (original_source
// database.py:Image.get_existing matches on the full 9-field tuple).
type Image struct {
	ID              int64
	IconURL         string
	MediumURL       string
	OriginalURL     string
	ScreenURL       string
	ScreenLargeURL  string
	SmallURL        string
	SuperURL        string
	ThumbURL        string
	TinyURL         string
	ImageTags       string
	FileID          *int64
	LastFullRefresh time.Time
}

// ImageFieldOrder is the fixed preference order used when enqueueing every
// present image field for a video, per original_source's
// server/app/downloads.py:download_video_with_images.
var ImageFieldOrder = []string{
	"original_url",
	"screen_large_url",
	"super_url",
	"screen_url",
	"medium_url",
	"small_url",
	"thumb_url",
	"icon_url",
	"tiny_url",
}

// Field returns the named URL field's value by the field name used in
// ImageFieldOrder and in Download.ObjURLField.
func (i *Image) Field(name string) string {
	switch name {
	case "original_url":
		return i.OriginalURL
	case "screen_large_url":
		return i.ScreenLargeURL
	case "super_url":
		return i.SuperURL
	case "screen_url":
		return i.ScreenURL
	case "medium_url":
		return i.MediumURL
	case "small_url":
		return i.SmallURL
	case "thumb_url":
		return i.ThumbURL
	case "icon_url":
		return i.IconURL
	case "tiny_url":
		return i.TinyURL
	default:
		return ""
	}
}

// Video is the primary catalog entity.
type Video struct {
	ID              int64
	Guid            string
	Title           string
	Deck            string
	PublishDate     time.Time
	HDURL           string
	HighURL         string
	LowURL          string
	ImageID         *int64
	VideoShowID     *int64
	VideoCategoryID *int64
	FileID          *int64
	LastFullRefresh time.Time
	SiteDetailURL   string
}

// VideoFieldOrder is the fixed best-quality-first preference order used
// when resolving the primary download field for a video, per
// original_source's server/app/downloads.py:download_video_with_images.
var VideoFieldOrder = []string{"hd_url", "high_url", "low_url"}

// Field returns the named playback URL field's value.
func (v *Video) Field(name string) string {
	switch name {
	case "hd_url":
		return v.HDURL
	case "high_url":
		return v.HighURL
	case "low_url":
		return v.LowURL
	default:
		return ""
	}
}

// DownloadStatus mirrors original_source's DownloadStatus IntEnum exactly
// (database.py), preserving the literal integer values so persisted rows
// remain meaningful if ever compared against the source's export.
type DownloadStatus int

const (
	DownloadQueued     DownloadStatus = 10
	DownloadInProgress DownloadStatus = 20
	DownloadPaused     DownloadStatus = 30
	DownloadComplete   DownloadStatus = 40
	DownloadCancelled  DownloadStatus = 50
	DownloadFailed     DownloadStatus = 90
)

// String renders the status for API/CLI display.
func (s DownloadStatus) String() string {
	switch s {
	case DownloadQueued:
		return "Queued"
	case DownloadInProgress:
		return "InProgress"
	case DownloadPaused:
		return "Paused"
	case DownloadComplete:
		return "Complete"
	case DownloadCancelled:
		return "Cancelled"
	case DownloadFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// File is the physical artifact on disk satisfying one (kind, id, field)
// triple. Exactly one File exists per triple (§3 invariant).
type File struct {
	ID          int64
	Name        string
	ObjItemName string
	ObjID       int64
	ObjURLField string
	Path        string
	SizeBytes   int64
	ContentType string
}

// Download is a request to materialize a File.
type Download struct {
	ID              int64
	Name            string
	ObjItemName     string
	ObjID           int64
	ObjURLField     string
	FileID          *int64
	Status          DownloadStatus
	FailedReason    string
	CreatedTime     time.Time
	StartTime       *time.Time
	FinishTime      *time.Time
	URL             string
	SizeBytes       int64
	DownloadedBytes int64
	ContentType     string
	ResponseHeaders string
}

func formatGuid(t TypeID, id int64) string {
	return strconv.FormatInt(int64(t), 10) + "-" + strconv.FormatInt(id, 10)
}
