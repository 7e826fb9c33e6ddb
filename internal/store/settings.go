// =============================================================================
// FILE: internal/store/settings.go
// PURPOSE: Key/value settings table, ported from original_source's
//          Setting.get/Setting.set static accessors (server/database.py).
// =============================================================================

package store

import (
	"context"
)

// GetSetting returns the stored value for key, or ("", sql.ErrNoRows) if unset.
func GetSetting(ctx context.Context, s *Session, key string) (string, error) {
	row := s.QueryRow(ctx, `SELECT value FROM settings WHERE key = ?`, key)
	var value string
	if err := row.Scan(&value); err != nil {
		return "", err
	}
	return value, nil
}

// SetSetting upserts a key/value pair.
func SetSetting(ctx context.Context, s *Session, key, value string) error {
	_, err := s.Exec(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// AllSettings returns every stored key/value pair.
func AllSettings(ctx context.Context, s *Session) (map[string]string, error) {
	rows, err := s.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
