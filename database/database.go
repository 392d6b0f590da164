package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pixeldiff/logging"
	"pixeldiff/types"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase opens the index at dbPath, creating or migrating the schema
func InitDatabase(dbPath string, rep *logging.Reporter) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		format TEXT,
		width INTEGER,
		height INTEGER,
		created_at TEXT,
		modified_at TEXT,
		size INTEGER,
		average_hash TEXT,
		perceptual_hash TEXT,
		UNIQUE(path)
	);
	CREATE INDEX IF NOT EXISTS idx_path ON images(path);
	CREATE INDEX IF NOT EXISTS idx_dimensions ON images(width, height);
	CREATE INDEX IF NOT EXISTS idx_perceptual_hash ON images(perceptual_hash);`

	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, err
	}

	// Databases written by older versions may lack these columns
	for _, column := range []string{"format", "average_hash", "perceptual_hash"} {
		if err := ensureColumn(db, column, rep); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

func ensureColumn(db *sql.DB, column string, rep *logging.Reporter) error {
	var hasColumn bool
	err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('images') WHERE name=?", column).Scan(&hasColumn)
	if err != nil {
		return fmt.Errorf("error checking for %s column: %w", column, err)
	}
	if hasColumn {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf("ALTER TABLE images ADD COLUMN %s TEXT;", column)); err != nil {
		return fmt.Errorf("error adding %s column: %w", column, err)
	}
	rep.DebugLog("Added '%s' column to existing database schema", column)
	return nil
}

// OpenDatabase opens an existing database connection
func OpenDatabase(dbPath string) (*sql.DB, error) {
	return sql.Open("sqlite3", dbPath)
}

// CheckImageExists reports whether path is indexed and, if so, its stored
// modification time
func CheckImageExists(db *sql.DB, path string) (bool, string, error) {
	var storedModTime sql.NullString
	err := db.QueryRow("SELECT modified_at FROM images WHERE path = ?", path).Scan(&storedModTime)
	if errors.Is(err, sql.ErrNoRows) {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("database error for %s: %w", path, err)
	}
	return true, storedModTime.String, nil
}

// StoreImageInfo stores image information in the database
func StoreImageInfo(db *sql.DB, imageInfo types.ImageInfo, forceRewrite bool) error {
	now := time.Now().Format(time.RFC3339)

	var query string
	if forceRewrite {
		query = `
			INSERT OR REPLACE INTO images (
				path, format, width, height, created_at, modified_at, size, average_hash, perceptual_hash
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	} else {
		// Keep the row's id and created_at when updating a changed file
		query = `
			INSERT INTO images (
				path, format, width, height, created_at, modified_at, size, average_hash, perceptual_hash
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				format = excluded.format,
				width = excluded.width,
				height = excluded.height,
				modified_at = excluded.modified_at,
				size = excluded.size,
				average_hash = excluded.average_hash,
				perceptual_hash = excluded.perceptual_hash`
	}

	stmt, err := db.Prepare(query)
	if err != nil {
		return fmt.Errorf("cannot prepare statement for %s: %w", imageInfo.Path, err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		imageInfo.Path,
		imageInfo.Format,
		imageInfo.Width,
		imageInfo.Height,
		now,
		imageInfo.ModifiedAt,
		imageInfo.Size,
		imageInfo.AverageHash,
		imageInfo.PerceptualHash,
	)
	if err != nil {
		return fmt.Errorf("cannot insert data for %s: %w", imageInfo.Path, err)
	}

	return nil
}

// GetImageInfo returns the indexed entry for path, or nil when there is none
func GetImageInfo(db *sql.DB, path string) (*types.ImageInfo, error) {
	row := db.QueryRow(`SELECT `+imageColumns+` FROM images WHERE path = ?`, path)
	info, err := scanImageInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read entry for %s: %w", path, err)
	}
	return info, nil
}

// QueryPotentialMatches returns the indexed entries with the given
// dimensions; zero dimensions return every entry
func QueryPotentialMatches(db *sql.DB, width, height int) ([]types.ImageInfo, error) {
	query := `SELECT ` + imageColumns + ` FROM images`
	var args []any
	if width > 0 && height > 0 {
		query += ` WHERE width = ? AND height = ?`
		args = append(args, width, height)
	}
	query += ` ORDER BY path`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var infos []types.ImageInfo
	for rows.Next() {
		info, err := scanImageInfo(rows)
		if err != nil {
			return nil, err
		}
		infos = append(infos, *info)
	}
	return infos, rows.Err()
}

const imageColumns = `id, path, format, width, height, created_at, modified_at, size, average_hash, perceptual_hash`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImageInfo(row rowScanner) (*types.ImageInfo, error) {
	var info types.ImageInfo
	var format, createdAt, modifiedAt, avgHash, pHash sql.NullString
	err := row.Scan(&info.ID, &info.Path, &format, &info.Width, &info.Height,
		&createdAt, &modifiedAt, &info.Size, &avgHash, &pHash)
	if err != nil {
		return nil, err
	}
	info.Format = format.String
	info.CreatedAt = createdAt.String
	info.ModifiedAt = modifiedAt.String
	info.AverageHash = avgHash.String
	info.PerceptualHash = pHash.String
	return &info, nil
}

// GetScanStats retrieves statistics about indexed images
func GetScanStats(db *sql.DB) (*types.ScanStats, error) {
	stats := types.ScanStats{Formats: make(map[string]int)}

	var lastScan sql.NullString
	err := db.QueryRow("SELECT COUNT(*), COALESCE(SUM(size), 0), MAX(created_at) FROM images").
		Scan(&stats.TotalImages, &stats.TotalBytes, &lastScan)
	if err != nil {
		return nil, fmt.Errorf("failed to get total images: %w", err)
	}
	stats.LastScan = lastScan.String

	err = db.QueryRow("SELECT COUNT(DISTINCT perceptual_hash) FROM images WHERE perceptual_hash != ''").
		Scan(&stats.UniqueHashes)
	if err != nil {
		return nil, fmt.Errorf("failed to get unique hashes: %w", err)
	}

	rows, err := db.Query("SELECT COALESCE(format, ''), COUNT(*) FROM images GROUP BY format")
	if err != nil {
		return nil, fmt.Errorf("failed to count formats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var format string
		var count int
		if err := rows.Scan(&format, &count); err != nil {
			return nil, err
		}
		stats.Formats[format] = count
	}
	return &stats, rows.Err()
}
