package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"pixeldiff/imageprocessor"
)

// isHidden reports whether a file or directory name starts with a dot
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// collectImageFiles walks root and returns every image file in walk order,
// along with per-format counts
func collectImageFiles(ctx context.Context, root string, excludeDirs []string) ([]string, FileStats, error) {
	stats := FileStats{byFormat: make(map[string]int)}
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subdirectories are skipped, an unreadable root is fatal
			if path == root {
				return err
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path != root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && slices.Contains(excludeDirs, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&os.ModeSymlink == 0 {
			return nil
		}
		if !imageprocessor.IsImageFile(path) {
			return nil
		}

		files = append(files, path)
		stats.totalFiles++
		stats.byFormat[string(imageprocessor.GetFileFormat(path))]++
		return nil
	})

	return files, stats, err
}
