package imageprocessor

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"pixeldiff/raster"
)

// StandardImageLoader handles the formats Go decodes natively
type StandardImageLoader struct {
	BaseImageLoader
}

// NewStandardImageLoader creates a new loader for standard image formats
func NewStandardImageLoader() *StandardImageLoader {
	return &StandardImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatJPEG,
				FormatPNG,
				FormatGIF,
				FormatTIFF,
				FormatBMP,
				FormatWEBP,
			},
		},
	}
}

// LoadImage decodes the file as stored. EXIF orientation is ignored so the
// pixel grid matches what OpenCV-decoded formats return.
func (l *StandardImageLoader) LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, newImageLoadError("failed to decode image", path, err)
	}
	return img, nil
}

// LoadRaster implements ImageLoader
func (l *StandardImageLoader) LoadRaster(path string) (raster.Raster, error) {
	img, err := l.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return raster.NewImageRaster(img), nil
}

// SaveImage encodes r to path, choosing the format from the extension
func SaveImage(r raster.Raster, path string) error {
	img, err := raster.ToImage(r)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
