// Package raster defines the pixel access contract shared by every image
// backend, and the in-memory and image.Image adapters that implement it.
package raster

import (
	"errors"
	"fmt"
	"io"

	"pixeldiff/pixel"
)

var (
	// ErrOutOfBounds is returned for coordinates outside the raster.
	ErrOutOfBounds = errors.New("pixel out of bounds")
	// ErrBandCount is returned when a color's length does not match the raster's bands.
	ErrBandCount = errors.New("color length does not match band count")
)

// Band layouts
var (
	BandsL    = []string{"L"}
	BandsLA   = []string{"L", "A"}
	BandsRGB  = []string{"R", "G", "B"}
	BandsRGBA = []string{"R", "G", "B", "A"}
)

// Raster is a readable and writable grid of pixels.
type Raster interface {
	// Size returns the width and height in pixels.
	Size() (int, int)
	// GetPixel returns the color at (x, y), one value per band.
	GetPixel(x, y int) (pixel.Color, error)
	// PutPixel sets the color at (x, y). The color must have one value per band.
	PutPixel(x, y int, c pixel.Color) error
	// Bands returns the channel layout such as {"R","G","B","A"}.
	Bands() []string
}

// InBounds reports whether (x, y) lies inside r.
func InBounds(r Raster, x, y int) bool {
	w, h := r.Size()
	return x >= 0 && y >= 0 && x < w && y < h
}

// SameBands reports whether two band layouts are identical.
func SameBands(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Release closes r when it holds resources outside the Go heap, such as an
// OpenCV matrix
func Release(r Raster) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func outOfBounds(x, y, w, h int) error {
	return fmt.Errorf("(%d, %d) in %dx%d raster: %w", x, y, w, h, ErrOutOfBounds)
}

func badBandCount(got, want int) error {
	return fmt.Errorf("got %d channels, want %d: %w", got, want, ErrBandCount)
}
