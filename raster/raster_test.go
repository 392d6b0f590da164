package raster

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"pixeldiff/pixel"
)

func TestBufferGetPut(t *testing.T) {
	b := NewBuffer(3, 2, BandsRGBA, pixel.Color{0, 0, 0, 255})
	if w, h := b.Size(); w != 3 || h != 2 {
		t.Fatalf("Size() = %d, %d, want 3, 2", w, h)
	}
	c, err := b.GetPixel(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Equal(pixel.Color{0, 0, 0, 255}) {
		t.Errorf("fill = %v, want [0 0 0 255]", c)
	}
	if err := b.PutPixel(2, 1, pixel.Color{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	c, _ = b.GetPixel(2, 1)
	if !c.Equal(pixel.Color{1, 2, 3, 4}) {
		t.Errorf("GetPixel after put = %v", c)
	}
	c[0] = 99
	again, _ := b.GetPixel(2, 1)
	if again[0] != 1 {
		t.Error("GetPixel should return a copy")
	}
}

func TestBufferErrors(t *testing.T) {
	b := NewBuffer(2, 2, BandsRGB, nil)
	for _, p := range [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 2}} {
		if _, err := b.GetPixel(p[0], p[1]); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("GetPixel(%d, %d) error = %v, want ErrOutOfBounds", p[0], p[1], err)
		}
		if err := b.PutPixel(p[0], p[1], pixel.Color{1, 2, 3}); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("PutPixel(%d, %d) error = %v, want ErrOutOfBounds", p[0], p[1], err)
		}
	}
	if err := b.PutPixel(0, 0, pixel.Color{1, 2, 3, 4}); !errors.Is(err, ErrBandCount) {
		t.Errorf("PutPixel with 4 channels error = %v, want ErrBandCount", err)
	}
}

func TestImageRasterReportsNonPremultiplied(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	// premultiplied half-transparent red
	img.SetRGBA(0, 0, color.RGBA{R: 128, A: 128})
	img.SetRGBA(1, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	r := NewImageRaster(img)
	c, err := r.GetPixel(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Equal(pixel.Color{255, 0, 0, 128}) {
		t.Errorf("GetPixel(0, 0) = %v, want [255 0 0 128]", c)
	}
	c, _ = r.GetPixel(1, 0)
	if !c.Equal(pixel.Color{10, 20, 30, 255}) {
		t.Errorf("GetPixel(1, 0) = %v", c)
	}
	if _, err := r.GetPixel(2, 0); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("GetPixel(2, 0) error = %v, want ErrOutOfBounds", err)
	}
}

func TestImageRasterOffsetBounds(t *testing.T) {
	img := image.NewNRGBA(image.Rect(5, 5, 7, 7))
	img.SetNRGBA(5, 5, color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	r := NewImageRaster(img)
	c, err := r.GetPixel(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Equal(pixel.Color{1, 2, 3, 4}) {
		t.Errorf("GetPixel(0, 0) = %v, want [1 2 3 4]", c)
	}
	if err := r.PutPixel(1, 1, pixel.Color{9, 8, 7, 255}); err != nil {
		t.Fatal(err)
	}
	if got := img.NRGBAAt(6, 6); got != (color.NRGBA{R: 9, G: 8, B: 7, A: 255}) {
		t.Errorf("underlying pixel = %v", got)
	}
}

func TestAsRGBA(t *testing.T) {
	gray := NewBufferFromRows(BandsL, [][]pixel.Color{{{10}, {200}}})
	out, err := AsRGBA(gray)
	if err != nil {
		t.Fatal(err)
	}
	if !SameBands(out.Bands(), BandsRGBA) {
		t.Fatalf("Bands() = %v", out.Bands())
	}
	c, _ := out.GetPixel(1, 0)
	if !c.Equal(pixel.Color{200, 200, 200, 255}) {
		t.Errorf("L to RGBA = %v", c)
	}

	la := NewBufferFromRows(BandsLA, [][]pixel.Color{{{10, 0}}})
	out, _ = AsRGBA(la)
	c, _ = out.GetPixel(0, 0)
	if !c.Equal(pixel.Color{10, 10, 10, 0}) {
		t.Errorf("LA to RGBA = %v", c)
	}

	rgb := NewBufferFromRows(BandsRGB, [][]pixel.Color{{{1, 2, 3}}})
	out, _ = AsRGBA(rgb)
	c, _ = out.GetPixel(0, 0)
	if !c.Equal(pixel.Color{1, 2, 3, 255}) {
		t.Errorf("RGB to RGBA = %v", c)
	}

	rgba := NewBuffer(1, 1, BandsRGBA, nil)
	out, _ = AsRGBA(rgba)
	if out != Raster(rgba) {
		t.Error("AsRGBA should return an RGBA raster unchanged")
	}

	if _, err := AsRGBA(NewBuffer(1, 1, []string{"C", "M", "Y", "K"}, nil)); err == nil {
		t.Error("AsRGBA(CMYK) should fail")
	}
}

func TestToImage(t *testing.T) {
	b := NewBufferFromRows(BandsRGB, [][]pixel.Color{{{1, 2, 3}, {4, 5, 6}}})
	img, err := ToImage(b)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 2, 1) {
		t.Fatalf("Bounds() = %v", img.Bounds())
	}
	if got := img.NRGBAAt(1, 0); got != (color.NRGBA{R: 4, G: 5, B: 6, A: 255}) {
		t.Errorf("NRGBAAt(1, 0) = %v", got)
	}
}

type closingRaster struct {
	*Buffer
	closed bool
	err    error
}

func (c *closingRaster) Close() error {
	c.closed = true
	return c.err
}

func TestRelease(t *testing.T) {
	r := &closingRaster{Buffer: NewBuffer(1, 1, BandsRGBA, nil)}
	if err := Release(r); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if !r.closed {
		t.Error("Release should close rasters implementing io.Closer")
	}
	// Plain buffers have nothing to release.
	if err := Release(NewBuffer(1, 1, BandsL, nil)); err != nil {
		t.Errorf("Release(buffer) error = %v", err)
	}
}

func TestReleaseReturnsCloseError(t *testing.T) {
	errClose := errors.New("mat already freed")
	r := &closingRaster{Buffer: NewBuffer(1, 1, BandsRGBA, nil), err: errClose}
	if err := Release(r); !errors.Is(err, errClose) {
		t.Errorf("Release() error = %v, want %v", err, errClose)
	}
}
