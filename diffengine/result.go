package diffengine

import (
	"errors"

	"pixeldiff/raster"
)

// NoPixelsMessage is stored in DiffResult.Error when nothing could be compared.
const NoPixelsMessage = "no comparable pixels"

// ErrNoPixels is returned by DiffResult.Mean when no pixel was counted.
var ErrNoPixels = errors.New(NoPixelsMessage)

// ImageMeta describes one side of a comparison.
type ImageMeta struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Ratio  float64 `json:"ratio"`
}

func metaOf(r raster.Raster) ImageMeta {
	w, h := r.Size()
	m := ImageMeta{Width: w, Height: h}
	if h > 0 {
		m.Ratio = float64(w) / float64(h)
	}
	return m
}

// DiffResult holds the outcome of DiffImages.
type DiffResult struct {
	// Same is nil until a pixel is visited; false once any pixel differs.
	Same *bool     `json:"same"`
	Base ImageMeta `json:"base"`
	Head ImageMeta `json:"head"`

	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`

	TotalDiff  float64 `json:"total_diff"`
	TotalCount int     `json:"total_count"`

	MeanDiff *float64 `json:"mean_diff,omitempty"`
	Error    string   `json:"error,omitempty"`

	// Diff is the raster the differences were painted on, if any.
	Diff raster.Raster `json:"-"`
}

// Mean returns MeanDiff, or ErrNoPixels when no pixel was counted.
func (r *DiffResult) Mean() (float64, error) {
	if r.MeanDiff == nil {
		return 0, ErrNoPixels
	}
	return *r.MeanDiff, nil
}

// IsSame reports whether the comparison found no differences at all.
func (r *DiffResult) IsSame() bool {
	return r.Same != nil && *r.Same
}

func (r *DiffResult) markSame() {
	if r.Same == nil {
		t := true
		r.Same = &t
	}
}

func (r *DiffResult) markDifferent() {
	f := false
	r.Same = &f
}
