package raster

import "pixeldiff/pixel"

// Buffer is an in-memory raster storing 8-bit channels row by row.
type Buffer struct {
	width, height int
	bands         []string
	pix           []int
}

// NewBuffer allocates a width x height raster with the given bands, every
// pixel set to fill (normalized to the band count).
func NewBuffer(width, height int, bands []string, fill pixel.Color) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	n := len(bands)
	b := &Buffer{
		width:  width,
		height: height,
		bands:  append([]string(nil), bands...),
		pix:    make([]int, width*height*n),
	}
	fill = pixel.Normalize(fill, n)
	for i := 0; i < len(b.pix); i += n {
		copy(b.pix[i:i+n], fill)
	}
	return b
}

// NewBufferFromRows builds an RGBA or single-band buffer from rows of colors.
// All colors are normalized to the band count.
func NewBufferFromRows(bands []string, rows [][]pixel.Color) *Buffer {
	h := len(rows)
	w := 0
	if h > 0 {
		w = len(rows[0])
	}
	b := NewBuffer(w, h, bands, nil)
	for y, row := range rows {
		for x := 0; x < w && x < len(row); x++ {
			copy(b.pix[b.offset(x, y):], pixel.Normalize(row[x], len(bands)))
		}
	}
	return b
}

func (b *Buffer) offset(x, y int) int {
	return (y*b.width + x) * len(b.bands)
}

// Size implements Raster.
func (b *Buffer) Size() (int, int) { return b.width, b.height }

// Bands implements Raster.
func (b *Buffer) Bands() []string { return b.bands }

// GetPixel implements Raster.
func (b *Buffer) GetPixel(x, y int) (pixel.Color, error) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return nil, outOfBounds(x, y, b.width, b.height)
	}
	off := b.offset(x, y)
	c := make(pixel.Color, len(b.bands))
	copy(c, b.pix[off:off+len(b.bands)])
	return c, nil
}

// PutPixel implements Raster.
func (b *Buffer) PutPixel(x, y int, c pixel.Color) error {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return outOfBounds(x, y, b.width, b.height)
	}
	if len(c) != len(b.bands) {
		return badBandCount(len(c), len(b.bands))
	}
	copy(b.pix[b.offset(x, y):], c)
	return nil
}
