// Package scanner indexes the images under a folder into the image database
// so later searches can look up sizes and hashes without decoding files.
package scanner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime/debug"
	"sort"
	"sync"

	"pixeldiff/database"
	"pixeldiff/imageprocessor"
	"pixeldiff/logging"
	"pixeldiff/progress"
	"pixeldiff/raster"
	"pixeldiff/types"
)

const defaultMaxWorkers = 8

// ScanAndStoreFolder scans a folder and stores image information in the
// database. When ctx is canceled no new files are started and the counts so
// far are returned with the context error.
func ScanAndStoreFolder(ctx context.Context, db *sql.DB, options ScanOptions, loader Loader, rep *logging.Reporter) (progress.Counts, error) {
	if loader == nil {
		return progress.Counts{}, errors.New("scanner: no loader configured")
	}
	workers := options.MaxWorkers
	if workers <= 0 {
		workers = defaultMaxWorkers
	}

	// The index is keyed by absolute path
	root, err := filepath.Abs(options.FolderPath)
	if err != nil {
		return progress.Counts{}, fmt.Errorf("failed to resolve %s: %w", options.FolderPath, err)
	}

	rep.DebugLog("Starting image scan on folder: %s", root)
	files, stats, err := collectImageFiles(ctx, root, options.ExcludeDirs)
	if err != nil {
		return progress.Counts{}, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	printStartupInfo(options.Progress, stats, options)

	// Initialize components for parallel processing
	var wg sync.WaitGroup
	resultsChan := make(chan types.ProcessResult, 100)
	semaphore := make(chan struct{}, workers)

	tracker := progress.NewTracker(options.Progress, "Indexing", stats.totalFiles, resultsChan, rep)

	var scanErr error
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			scanErr = err
			break
		}
		wg.Add(1)
		semaphore <- struct{}{}

		go func(p string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			resultsChan <- processAndStoreImage(db, p, loader, options.ForceRewrite, rep)
		}(path)
	}

	// Wait for all processing to complete
	wg.Wait()
	close(resultsChan)
	counts := tracker.Stop()

	if options.Progress != nil {
		tracker.PrintCompletionStats(options.Progress)
	}
	return counts, scanErr
}

// printStartupInfo displays information about the scan before starting
func printStartupInfo(w io.Writer, stats FileStats, options ScanOptions) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, "Starting image indexing...\nTotal image files to process: %d\n", stats.totalFiles)
	fmt.Fprintf(w, "Force rewrite mode: %v\n", options.ForceRewrite)

	formats := make([]string, 0, len(stats.byFormat))
	for format := range stats.byFormat {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	for _, format := range formats {
		fmt.Fprintf(w, "  %-6s %d\n", format, stats.byFormat[format])
	}
}

// processAndStoreImage processes a single image and stores it in the database
func processAndStoreImage(db *sql.DB, path string, loader Loader, forceRewrite bool, rep *logging.Reporter) (result types.ProcessResult) {
	result = types.ProcessResult{Path: path}

	// OpenCV can panic on malformed input
	defer func() {
		if r := recover(); r != nil {
			rep.LogError("Panic during image loading: %v, file: %s\nStack trace: %s", r, path, debug.Stack())
			result = types.ProcessResult{Path: path, Error: fmt.Errorf("panic during image loading: %v", r)}
		}
	}()

	fileInfo, err := statFile(path)
	if err != nil {
		result.Error = err
		return result
	}

	// Skip processing if the image already exists and hasn't been modified
	if !forceRewrite {
		if skipResult := checkAndSkipIfUnchanged(db, path, fileInfo, rep); skipResult != nil {
			return *skipResult
		}
	}

	img, err := loader.LoadRaster(path)
	if err != nil {
		result.Error = fmt.Errorf("failed to load image %s: %w", path, err)
		return result
	}
	defer func() {
		if err := raster.Release(img); err != nil {
			rep.LogWarning("failed to release %s: %v", path, err)
		}
	}()

	hashes, err := imageprocessor.ComputeRasterHashes(img)
	if err != nil {
		result.Error = fmt.Errorf("cannot compute hashes for %s: %w", path, err)
		return result
	}

	width, height := img.Size()
	imageInfo := types.ImageInfo{
		Path:           path,
		Format:         string(imageprocessor.GetFileFormat(path)),
		Width:          width,
		Height:         height,
		ModifiedAt:     database.FormatModTime(fileInfo.ModTime()),
		Size:           fileInfo.Size(),
		AverageHash:    hashes.AverageHash,
		PerceptualHash: hashes.PerceptualHash,
	}

	if err := database.StoreImageInfo(db, imageInfo, forceRewrite); err != nil {
		result.Error = fmt.Errorf("cannot store data for %s: %w", path, err)
		return result
	}

	rep.TraceLog("%s hashes - avgHash: %s, pHash: %s", path, hashes.AverageHash, hashes.PerceptualHash)
	result.Success = true
	return result
}
