package raster

import (
	"image"
	"image/color"
	"image/draw"

	"pixeldiff/pixel"
)

// ImageRaster adapts a Go image to the Raster contract. Pixels are reported
// as non-premultiplied 8-bit R,G,B,A regardless of the underlying model.
// PutPixel only works when the wrapped image implements draw.Image.
type ImageRaster struct {
	img    image.Image
	bounds image.Rectangle
}

// NewImageRaster wraps img. Coordinates are relative to img.Bounds().Min.
func NewImageRaster(img image.Image) *ImageRaster {
	return &ImageRaster{img: img, bounds: img.Bounds()}
}

// Image returns the wrapped image.
func (r *ImageRaster) Image() image.Image { return r.img }

// Size implements Raster.
func (r *ImageRaster) Size() (int, int) { return r.bounds.Dx(), r.bounds.Dy() }

// Bands implements Raster.
func (r *ImageRaster) Bands() []string { return BandsRGBA }

// GetPixel implements Raster.
func (r *ImageRaster) GetPixel(x, y int) (pixel.Color, error) {
	w, h := r.Size()
	if x < 0 || y < 0 || x >= w || y >= h {
		return nil, outOfBounds(x, y, w, h)
	}
	c := color.NRGBAModel.Convert(r.img.At(r.bounds.Min.X+x, r.bounds.Min.Y+y)).(color.NRGBA)
	return pixel.Color{int(c.R), int(c.G), int(c.B), int(c.A)}, nil
}

// PutPixel implements Raster.
func (r *ImageRaster) PutPixel(x, y int, c pixel.Color) error {
	w, h := r.Size()
	if x < 0 || y < 0 || x >= w || y >= h {
		return outOfBounds(x, y, w, h)
	}
	if len(c) != 4 {
		return badBandCount(len(c), 4)
	}
	dst, ok := r.img.(draw.Image)
	if !ok {
		return errReadOnly
	}
	dst.Set(r.bounds.Min.X+x, r.bounds.Min.Y+y, color.NRGBA{
		R: clamp8(c[0]), G: clamp8(c[1]), B: clamp8(c[2]), A: clamp8(c[3]),
	})
	return nil
}

// ToImage renders any raster into an NRGBA image suitable for encoding.
func ToImage(r Raster) (*image.NRGBA, error) {
	if ir, ok := r.(*ImageRaster); ok {
		if nrgba, ok := ir.img.(*image.NRGBA); ok && nrgba.Bounds().Min == (image.Point{}) {
			return nrgba, nil
		}
	}
	rgba, err := AsRGBA(r)
	if err != nil {
		return nil, err
	}
	w, h := rgba.Size()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c, err := rgba.GetPixel(x, y)
			if err != nil {
				return nil, err
			}
			out.SetNRGBA(x, y, color.NRGBA{R: clamp8(c[0]), G: clamp8(c[1]), B: clamp8(c[2]), A: clamp8(c[3])})
		}
	}
	return out, nil
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
