// Package imageprocessor loads image files of many formats as rasters and
// extracts their dimensions and perceptual hashes.
package imageprocessor

import "pixeldiff/raster"

// ImageLoader is the interface that all image loaders must implement
type ImageLoader interface {
	// CanLoad checks if the loader can handle the given file
	CanLoad(path string) bool

	// LoadRaster loads the file as a raster
	LoadRaster(path string) (raster.Raster, error)
}
