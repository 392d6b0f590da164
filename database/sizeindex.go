package database

import (
	"database/sql"
	"time"
)

// SizeIndex answers dimension lookups from the index so callers can skip
// files without decoding them.
type SizeIndex struct {
	db *sql.DB
}

// NewSizeIndex wraps an open index database
func NewSizeIndex(db *sql.DB) *SizeIndex {
	return &SizeIndex{db: db}
}

// LookupSize returns the stored dimensions of path. ok is false when the
// file is not indexed or has been modified since it was indexed.
func (s *SizeIndex) LookupSize(path string, modTime time.Time) (int, int, bool) {
	var width, height int
	var storedModTime sql.NullString
	err := s.db.QueryRow("SELECT width, height, modified_at FROM images WHERE path = ?", path).
		Scan(&width, &height, &storedModTime)
	if err != nil || !storedModTime.Valid {
		return 0, 0, false
	}
	stored, err := time.Parse(time.RFC3339Nano, storedModTime.String)
	if err != nil || modTime.After(stored) {
		return 0, 0, false
	}
	return width, height, true
}

// FormatModTime renders a modification time the way the index stores it
func FormatModTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
