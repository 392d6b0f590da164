package imageprocessor

import (
	"path/filepath"
	"strings"
	"sync"

	"pixeldiff/raster"
)

// ImageLoaderRegistry maintains a registry of image loaders
type ImageLoaderRegistry struct {
	loaders       map[string]ImageLoader
	defaultLoader ImageLoader
	mutex         sync.RWMutex
}

// NewImageLoaderRegistry creates a new image loader registry
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		loaders: make(map[string]ImageLoader),
	}

	standardLoader := NewStandardImageLoader()
	matLoader := NewMatImageLoader()
	for _, ext := range GetSupportedExtensions() {
		if IsStandardFormat(ext) {
			registry.RegisterLoader(ext, standardLoader)
		} else {
			registry.RegisterLoader(ext, matLoader)
		}
	}

	// OpenCV reads more than the extension map knows about
	registry.defaultLoader = matLoader

	return registry
}

// RegisterLoader registers a new loader for a specific file extension
func (r *ImageLoaderRegistry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ext = strings.ToLower(ext)
	r.loaders[ext] = loader
}

// GetLoader returns the appropriate loader for the given path
func (r *ImageLoaderRegistry) GetLoader(path string) ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	if loader, ok := r.loaders[ext]; ok {
		return loader
	}

	return r.defaultLoader
}

// CanLoadFile checks if a registered loader handles the file's extension
func (r *ImageLoaderRegistry) CanLoadFile(path string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	_, ok := r.loaders[ext]
	return ok
}

// LoadRaster loads an image using the appropriate registered loader. When
// the standard decoder rejects a file, OpenCV gets a second chance.
func (r *ImageLoaderRegistry) LoadRaster(path string) (raster.Raster, error) {
	loader := r.GetLoader(path)
	if loader == nil {
		return nil, newImageLoadError("no suitable loader found", path, ErrUnsupportedFormat)
	}

	img, err := loader.LoadRaster(path)
	if err == nil {
		return img, nil
	}
	if _, standard := loader.(*StandardImageLoader); standard && r.defaultLoader != nil {
		if fallback, ferr := r.defaultLoader.LoadRaster(path); ferr == nil {
			return fallback, nil
		}
	}
	return nil, err
}
