package raster

import (
	"errors"
	"fmt"

	"pixeldiff/pixel"
)

var errReadOnly = errors.New("raster is read-only")

// AsRGBA converts r to an R,G,B,A raster. Gray values are copied into all
// three color channels and missing alpha becomes fully opaque. A raster that
// already reports RGBA bands is returned as is.
func AsRGBA(r Raster) (Raster, error) {
	bands := r.Bands()
	if SameBands(bands, BandsRGBA) {
		return r, nil
	}
	expand, err := expander(bands)
	if err != nil {
		return nil, err
	}
	w, h := r.Size()
	out := NewBuffer(w, h, BandsRGBA, nil)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c, err := r.GetPixel(x, y)
			if err != nil {
				return nil, err
			}
			if err := out.PutPixel(x, y, expand(c)); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func expander(bands []string) (func(pixel.Color) pixel.Color, error) {
	switch {
	case SameBands(bands, BandsL):
		return func(c pixel.Color) pixel.Color {
			return pixel.Color{c[0], c[0], c[0], 255}
		}, nil
	case SameBands(bands, BandsLA):
		return func(c pixel.Color) pixel.Color {
			return pixel.Color{c[0], c[0], c[0], c[1]}
		}, nil
	case SameBands(bands, BandsRGB):
		return func(c pixel.Color) pixel.Color {
			return pixel.Normalize(c, 4)
		}, nil
	}
	return nil, fmt.Errorf("cannot convert bands %v to RGBA", bands)
}
