// Package diffengine compares two rasters pixel by pixel, produces summary
// statistics, and optionally paints a visual diff.
package diffengine

import (
	"errors"
	"fmt"
	"math"

	"pixeldiff/logging"
	"pixeldiff/pixel"
	"pixeldiff/raster"
)

// Options configures DiffImages. The zero value compares the union of both
// extents without painting.
type Options struct {
	// Width and Height bound the compared area. Zero means the union of
	// both images' extents.
	Width, Height int
	// Diff, when set, receives a painted pixel wherever the images differ.
	// Its band count must equal len(NoChange).
	Diff raster.Raster
	// NoChange is the diff background (default opaque black).
	NoChange pixel.Color
	// CMax is the 100% channel value (default 255).
	CMax int
	// MaxCount is the number of channels compared (default 4, including alpha).
	MaxCount int
	// ClearInStats counts every pixel that is not visible in both images
	// as a full difference, including pixels transparent in both.
	ClearInStats bool
	// Reporter receives diagnostics. Nil discards them.
	Reporter *logging.Reporter
}

func (o Options) withDefaults(base, head raster.Raster) Options {
	if o.Width <= 0 || o.Height <= 0 {
		bw, bh := base.Size()
		hw, hh := head.Size()
		if o.Width <= 0 {
			o.Width = max(bw, hw)
		}
		if o.Height <= 0 {
			o.Height = max(bh, hh)
		}
	}
	if o.NoChange == nil {
		o.NoChange = DefaultNoChange
	}
	if o.CMax <= 0 {
		o.CMax = pixel.DefaultCMax
	}
	if o.MaxCount <= 0 {
		o.MaxCount = 4
	}
	return o
}

// DiffImages compares base and head over the configured area and returns the
// statistics. Pixels outside base are "added", pixels outside head are
// "removed", and pixels in both are "changed" when their distance is nonzero.
func DiffImages(base, head raster.Raster, opts Options) (*DiffResult, error) {
	opts = opts.withDefaults(base, head)
	rep := opts.Reporter

	sentinels, err := ChooseSentinels(opts.NoChange, opts.CMax)
	if err != nil {
		return nil, err
	}
	if opts.Diff != nil && len(opts.Diff.Bands()) != len(opts.NoChange) {
		return nil, fmt.Errorf("diff raster has %d bands, nochange color has %d: %w",
			len(opts.Diff.Bands()), len(opts.NoChange), ErrNoChangeColor)
	}

	base, err = raster.AsRGBA(base)
	if err != nil {
		return nil, fmt.Errorf("convert base: %w", err)
	}
	head, err = raster.AsRGBA(head)
	if err != nil {
		return nil, fmt.Errorf("convert head: %w", err)
	}

	result := &DiffResult{
		Base: metaOf(base),
		Head: metaOf(head),
		Diff: opts.Diff,
	}
	distOpts := pixel.DistanceOptions{
		CMax:     opts.CMax,
		MaxCount: opts.MaxCount,
		Convert:  true,
	}
	pixLen := len(opts.NoChange)

	for y := 0; y < opts.Height; y++ {
		for x := 0; x < opts.Width; x++ {
			var baseColor, headColor pixel.Color
			baseOK := raster.InBounds(base, x, y)
			if baseOK {
				if baseColor, err = readPixel(base, x, y, "base", rep); err != nil {
					return nil, err
				}
				baseOK = baseColor != nil
			}
			headOK := raster.InBounds(head, x, y)
			if baseOK && headOK {
				if headColor, err = readPixel(head, x, y, "head", rep); err != nil {
					return nil, err
				}
				headOK = headColor != nil
			}

			var paint pixel.Color
			switch {
			case !baseOK:
				paint = sentinels.Add
				result.Added++
				result.TotalDiff += 1.0
				result.TotalCount++
			case !headOK:
				paint = sentinels.Del
				result.Removed++
				result.TotalDiff += 1.0
				result.TotalCount++
			default:
				d, err := pixel.Distance(baseColor, headColor, distOpts)
				if err != nil {
					return nil, fmt.Errorf("compare pixel (%d, %d): %w", x, y, err)
				}
				accumulate(result, d, baseColor.Alpha(opts.CMax), headColor.Alpha(opts.CMax), opts.ClearInStats)
				// Any nonzero distance clears Same, even when diffColor
				// rounds it to the nochange color.
				if d != 0 {
					result.Changed++
					paint = diffColor(d, pixLen, opts.CMax)
				} else {
					result.Unchanged++
				}
			}

			if paint == nil {
				result.markSame()
				continue
			}
			result.markDifferent()
			if opts.Diff != nil {
				if err := opts.Diff.PutPixel(x, y, paint); err != nil {
					return nil, fmt.Errorf("paint diff at (%d, %d): %w", x, y, err)
				}
			}
		}
	}

	if result.TotalCount > 0 {
		mean := result.TotalDiff / float64(result.TotalCount)
		result.MeanDiff = &mean
	} else {
		result.Error = NoPixelsMessage
	}
	return result, nil
}

// readPixel returns nil without an error when the adapter reports the pixel
// as out of bounds, so the caller treats it as absent.
func readPixel(r raster.Raster, x, y int, side string, rep *logging.Reporter) (pixel.Color, error) {
	c, err := r.GetPixel(x, y)
	if err == nil {
		return c, nil
	}
	if errors.Is(err, raster.ErrOutOfBounds) {
		w, h := r.Size()
		rep.LogWarning("%s pixel (%d, %d) unreadable in %dx%d image, treating it as absent: %v",
			side, x, y, w, h, err)
		return nil, nil
	}
	return nil, fmt.Errorf("read %s pixel (%d, %d): %w", side, x, y, err)
}

// accumulate adds one overlapping pixel pair to the statistics.
func accumulate(result *DiffResult, d float64, baseA, headA int, clearInStats bool) {
	switch {
	case baseA > 0 && headA > 0:
		result.TotalDiff += math.Abs(d)
		result.TotalCount++
	case clearInStats || baseA > 0 || headA > 0:
		result.TotalDiff += 1.0
		result.TotalCount++
	}
}

// diffColor renders a distance as a gray level in the first three channels,
// with any remaining channels fully on.
func diffColor(d float64, pixLen, cMax int) pixel.Color {
	v := int(math.Round(float64(cMax) * math.Abs(d)))
	c := make(pixel.Color, pixLen)
	gray := min(pixLen, 3)
	for i := range c {
		if i < gray {
			c[i] = v
		} else {
			c[i] = cMax
		}
	}
	return c
}

// GenDiffImage compares base and head over the union of their extents.
// When withDiff is true the result carries an RGBA diff raster with an
// opaque black background.
func GenDiffImage(base, head raster.Raster, withDiff bool, rep *logging.Reporter) (*DiffResult, error) {
	bw, bh := base.Size()
	hw, hh := head.Size()
	opts := Options{
		Width:    max(bw, hw),
		Height:   max(bh, hh),
		NoChange: DefaultNoChange,
		Reporter: rep,
	}
	if withDiff {
		opts.Diff = raster.NewBuffer(opts.Width, opts.Height, raster.BandsRGBA, DefaultNoChange)
	}
	return DiffImages(base, head, opts)
}
