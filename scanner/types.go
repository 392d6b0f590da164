package scanner

import (
	"io"

	"pixeldiff/raster"
)

// ScanOptions defines the options for scanning
type ScanOptions struct {
	FolderPath   string
	ForceRewrite bool
	MaxWorkers   int      // Defaults to 8
	ExcludeDirs  []string // Directory names skipped at any depth
	Progress     io.Writer
}

// Loader opens an image file as a raster
type Loader interface {
	LoadRaster(path string) (raster.Raster, error)
}

// FileStats tracks information about files to be processed
type FileStats struct {
	totalFiles int
	byFormat   map[string]int
}
