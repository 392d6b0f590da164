package scanner

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"pixeldiff/database"
	"pixeldiff/logging"
	"pixeldiff/types"
)

// checkAndSkipIfUnchanged checks if an image can be skipped because it hasn't changed
func checkAndSkipIfUnchanged(db *sql.DB, path string, fileInfo os.FileInfo, rep *logging.Reporter) *types.ProcessResult {
	exists, storedModTime, err := database.CheckImageExists(db, path)
	if err != nil {
		return &types.ProcessResult{
			Path:  path,
			Error: err,
		}
	}
	if !exists {
		return nil
	}

	storedTime, err := time.Parse(time.RFC3339Nano, storedModTime)
	if err != nil {
		// Entries written by older versions are simply re-indexed
		rep.DebugLog("Cannot parse stored time for %s: %v", path, err)
		return nil
	}

	if fileInfo.ModTime().After(storedTime) {
		return nil
	}

	rep.TraceLog("Skipping unchanged image: %s", path)
	return &types.ProcessResult{
		Path:    path,
		Success: true,
		Skipped: true,
	}
}

// statFile wraps os.Stat with the scanner's error message
func statFile(path string) (os.FileInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat file %s: %w", path, err)
	}
	return fileInfo, nil
}
