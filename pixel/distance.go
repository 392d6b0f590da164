package pixel

import (
	"fmt"
	"math"
)

// DistanceOptions controls which channels Distance compares and how.
// The zero value compares up to the first three channels of 8-bit colors
// using the absolute difference.
type DistanceOptions struct {
	// CMax is the 100% value of a channel (default 255).
	CMax int
	// BaseIndices and HeadIndices select the channels to compare. When nil,
	// the first min(len(color), MaxCount) channels are used.
	BaseIndices []int
	HeadIndices []int
	// Signed accumulates base-head instead of |base-head|, so the result
	// lies in [-1, 1] and its sign tells which side is brighter.
	Signed bool
	// MaxCount caps the generated index lists (default 3, which ignores alpha).
	MaxCount int
	// Convert normalizes the shorter color to the longer length instead of
	// failing with ErrChannelMismatch.
	Convert bool
}

func (o DistanceOptions) cMax() int {
	if o.CMax <= 0 {
		return DefaultCMax
	}
	return o.CMax
}

func (o DistanceOptions) maxCount() int {
	if o.MaxCount <= 0 {
		return 3
	}
	return o.MaxCount
}

// Distance returns the normalized average per-channel difference between
// base and head: 0 means the selected channels are identical and 1 means
// every selected channel is at opposite extremes.
func Distance(base, head Color, opts DistanceOptions) (float64, error) {
	cMax := opts.cMax()
	if len(base) != len(head) {
		if !opts.Convert {
			return 0, fmt.Errorf("base has %d channels, head has %d: %w",
				len(base), len(head), ErrChannelMismatch)
		}
		if len(base) > len(head) {
			head = Normalize(head, len(base))
		} else {
			base = Normalize(base, len(head))
		}
	}

	baseIndices := opts.BaseIndices
	if baseIndices == nil {
		baseIndices = sequentialIndices(min(len(base), opts.maxCount()))
	}
	headIndices := opts.HeadIndices
	if headIndices == nil {
		headIndices = sequentialIndices(min(len(head), opts.maxCount()))
	}
	if len(baseIndices) != len(headIndices) {
		return 0, fmt.Errorf("base uses %d channels, head uses %d: %w",
			len(baseIndices), len(headIndices), ErrIndexMismatch)
	}
	if len(baseIndices) == 0 {
		return 0, ErrNoChannels
	}

	var diff float64
	for ii := range baseIndices {
		bi, hi := baseIndices[ii], headIndices[ii]
		if bi < 0 || bi >= len(base) || hi < 0 || hi >= len(head) {
			return 0, fmt.Errorf("indices %d/%d for colors of length %d/%d: %w",
				bi, hi, len(base), len(head), ErrIndexRange)
		}
		d := float64(base[bi]) - float64(head[hi])
		if !opts.Signed {
			d = math.Abs(d)
		}
		diff += d
	}
	return diff / float64(len(baseIndices)*cMax), nil
}

func sequentialIndices(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}
