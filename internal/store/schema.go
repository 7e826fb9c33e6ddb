// =============================================================================
// FILE: internal/store/schema.go
// PURPOSE: Catalog database schema. Table layout for entities, files,
//          downloads, settings, system state and the background-job
//          live/archive tables. Behaviorally grounded on original_source's
//          server/database.py; the exact column layout is this port's own,
//          per spec.md §3's note that table layout is not prescribed.
// =============================================================================

package store

import "database/sql"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS video_shows (
	id INTEGER PRIMARY KEY,
	guid TEXT UNIQUE NOT NULL,
	title TEXT,
	deck TEXT,
	logo_url TEXT,
	site_detail_url TEXT,
	last_full_refresh TEXT
);

CREATE TABLE IF NOT EXISTS video_categories (
	id INTEGER PRIMARY KEY,
	guid TEXT UNIQUE NOT NULL,
	name TEXT,
	deck TEXT,
	site_detail_url TEXT,
	last_full_refresh TEXT
);

CREATE TABLE IF NOT EXISTS images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	icon_url TEXT NOT NULL DEFAULT '',
	medium_url TEXT NOT NULL DEFAULT '',
	original_url TEXT NOT NULL DEFAULT '',
	screen_url TEXT NOT NULL DEFAULT '',
	screen_large_url TEXT NOT NULL DEFAULT '',
	small_url TEXT NOT NULL DEFAULT '',
	super_url TEXT NOT NULL DEFAULT '',
	thumb_url TEXT NOT NULL DEFAULT '',
	tiny_url TEXT NOT NULL DEFAULT '',
	image_tags TEXT,
	file_id INTEGER,
	last_full_refresh TEXT,
	UNIQUE(icon_url, medium_url, original_url, screen_url, screen_large_url, small_url, super_url, thumb_url, tiny_url)
);

CREATE TABLE IF NOT EXISTS videos (
	id INTEGER PRIMARY KEY,
	guid TEXT UNIQUE NOT NULL,
	title TEXT,
	deck TEXT,
	publish_date TEXT,
	hd_url TEXT,
	high_url TEXT,
	low_url TEXT,
	image_id INTEGER REFERENCES images(id),
	video_show_id INTEGER REFERENCES video_shows(id),
	video_category_id INTEGER REFERENCES video_categories(id),
	file_id INTEGER,
	site_detail_url TEXT,
	last_full_refresh TEXT
);

CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT,
	obj_item_name TEXT NOT NULL,
	obj_id INTEGER NOT NULL,
	obj_url_field TEXT NOT NULL,
	path TEXT NOT NULL,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	content_type TEXT,
	UNIQUE(obj_item_name, obj_id, obj_url_field)
);

CREATE TABLE IF NOT EXISTS downloads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT,
	obj_item_name TEXT NOT NULL,
	obj_id INTEGER NOT NULL,
	obj_url_field TEXT NOT NULL,
	file_id INTEGER,
	status INTEGER NOT NULL,
	failed_reason TEXT,
	created_time TEXT NOT NULL,
	start_time TEXT,
	finish_time TEXT,
	url TEXT,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	downloaded_bytes INTEGER NOT NULL DEFAULT 0,
	content_type TEXT,
	response_headers TEXT
);
CREATE INDEX IF NOT EXISTS idx_downloads_status_created ON downloads(status, created_time);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS system_state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	indexer_full_last_update TEXT,
	indexer_quick_last_update TEXT,
	indexer_full_in_progress INTEGER NOT NULL DEFAULT 0,
	indexer_quick_in_progress INTEGER NOT NULL DEFAULT 0,
	indexer_full_total_results INTEGER NOT NULL DEFAULT 0,
	indexer_full_processed_results INTEGER NOT NULL DEFAULT 0,
	indexer_quick_total_results INTEGER NOT NULL DEFAULT 0,
	indexer_quick_processed_results INTEGER NOT NULL DEFAULT 0,
	db_version INTEGER NOT NULL DEFAULT 1,
	first_time_setup_initiated INTEGER NOT NULL DEFAULT 0,
	first_time_setup_complete INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS background_jobs (
	uuid TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	pauseable INTEGER NOT NULL,
	recoverable INTEGER NOT NULL,
	state INTEGER NOT NULL,
	progress_current INTEGER NOT NULL DEFAULT 0,
	progress_denominator INTEGER NOT NULL DEFAULT 0,
	data TEXT,
	created_time TEXT NOT NULL,
	updated_time TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS background_job_archives (
	uuid TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	pauseable INTEGER NOT NULL,
	recoverable INTEGER NOT NULL,
	state INTEGER NOT NULL,
	progress_current INTEGER NOT NULL DEFAULT 0,
	progress_denominator INTEGER NOT NULL DEFAULT 0,
	data TEXT,
	created_time TEXT NOT NULL,
	archived_time TEXT NOT NULL
);
`

// applySchema creates all tables if they do not already exist, and ensures
// the singleton system_state row is present.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return err
	}
	_, err := db.Exec(`INSERT OR IGNORE INTO system_state (id) VALUES (1)`)
	return err
}
