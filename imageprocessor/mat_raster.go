package imageprocessor

import (
	"fmt"

	"gocv.io/x/gocv"

	"pixeldiff/pixel"
	"pixeldiff/raster"
)

// MatRaster adapts an 8-bit OpenCV Mat to the raster contract. OpenCV keeps
// color channels as B,G,R(,A); they are reported in R,G,B(,A) order, and a
// single-channel Mat is reported as L.
type MatRaster struct {
	mat      gocv.Mat
	channels int
	bands    []string
}

// NewMatRaster wraps mat. Only 8-bit Mats with 1, 3 or 4 channels are accepted.
func NewMatRaster(mat gocv.Mat) (*MatRaster, error) {
	var bands []string
	switch mat.Type() {
	case gocv.MatTypeCV8UC1:
		bands = raster.BandsL
	case gocv.MatTypeCV8UC3:
		bands = raster.BandsRGB
	case gocv.MatTypeCV8UC4:
		bands = raster.BandsRGBA
	default:
		return nil, fmt.Errorf("unsupported Mat type %v: %w", mat.Type(), ErrUnsupportedFormat)
	}
	return &MatRaster{mat: mat, channels: mat.Channels(), bands: bands}, nil
}

// Close releases the Mat's memory.
func (m *MatRaster) Close() error { return m.mat.Close() }

// Size implements raster.Raster
func (m *MatRaster) Size() (int, int) { return m.mat.Cols(), m.mat.Rows() }

// Bands implements raster.Raster
func (m *MatRaster) Bands() []string { return m.bands }

// matChannel maps a reported band index to the Mat's channel index.
func (m *MatRaster) matChannel(band int) int {
	if m.channels >= 3 && band < 3 {
		return 2 - band
	}
	return band
}

// GetPixel implements raster.Raster
func (m *MatRaster) GetPixel(x, y int) (pixel.Color, error) {
	w, h := m.Size()
	if x < 0 || y < 0 || x >= w || y >= h {
		return nil, fmt.Errorf("(%d, %d) in %dx%d Mat: %w", x, y, w, h, raster.ErrOutOfBounds)
	}
	c := make(pixel.Color, m.channels)
	for band := range c {
		c[band] = int(m.mat.GetUCharAt(y, x*m.channels+m.matChannel(band)))
	}
	return c, nil
}

// PutPixel implements raster.Raster
func (m *MatRaster) PutPixel(x, y int, c pixel.Color) error {
	w, h := m.Size()
	if x < 0 || y < 0 || x >= w || y >= h {
		return fmt.Errorf("(%d, %d) in %dx%d Mat: %w", x, y, w, h, raster.ErrOutOfBounds)
	}
	if len(c) != m.channels {
		return fmt.Errorf("got %d channels, want %d: %w", len(c), m.channels, raster.ErrBandCount)
	}
	for band, v := range c {
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		m.mat.SetUCharAt(y, x*m.channels+m.matChannel(band), uint8(v))
	}
	return nil
}

// MatImageLoader loads any format OpenCV can read. It is the registry's
// fallback for extensions Go has no decoder for.
type MatImageLoader struct {
	BaseImageLoader
}

// NewMatImageLoader creates a new OpenCV-backed loader
func NewMatImageLoader() *MatImageLoader {
	return &MatImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatJP2,
				FormatPNM,
				FormatSunRas,
				FormatEXR,
				FormatHDR,
			},
		},
	}
}

// LoadMat reads the file keeping its alpha channel. Files that do not decode
// to 8 bits per channel are re-read as 8-bit BGR.
func (l *MatImageLoader) LoadMat(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadUnchanged)
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), newImageLoadError("failed to load image with OpenCV", path, nil)
	}
	switch img.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
		return img, nil
	}
	img.Close()

	img = gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), newImageLoadError("failed to load image as 8-bit color", path, nil)
	}
	return img, nil
}

// LoadRaster implements ImageLoader
func (l *MatImageLoader) LoadRaster(path string) (raster.Raster, error) {
	mat, err := l.LoadMat(path)
	if err != nil {
		return nil, err
	}
	r, err := NewMatRaster(mat)
	if err != nil {
		mat.Close()
		return nil, newImageLoadError("failed to wrap image", path, err)
	}
	return r, nil
}
