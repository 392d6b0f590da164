// Package pixel provides channel-level color handling that does not depend
// on any imaging library: depth normalization and per-pixel distance.
package pixel

import (
	"errors"
	"fmt"
	"math"
)

// Color is an ordered list of channel values, such as R,G,B,A or a single L.
type Color []int

// DefaultCMax is the 100% value of an 8-bit channel.
const DefaultCMax = 255

var (
	// ErrColorShape is returned when a value cannot be read as a color.
	ErrColorShape = errors.New("color must be a number or a sequence of numbers")
	// ErrChannelMismatch is returned when two colors differ in length and conversion is off.
	ErrChannelMismatch = errors.New("channel counts do not match")
	// ErrIndexMismatch is returned when base and head index lists differ in length.
	ErrIndexMismatch = errors.New("base and head index lists differ in length")
	// ErrIndexRange is returned when a channel index is outside a color.
	ErrIndexRange = errors.New("channel index out of range")
	// ErrNoChannels is returned when no channel takes part in a comparison.
	ErrNoChannels = errors.New("no channels selected")
)

// Equal reports whether two colors have the same length and values.
func (c Color) Equal(other Color) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// Alpha returns the fourth channel, or cMax when the color has none.
func (c Color) Alpha(cMax int) int {
	if len(c) > 3 {
		return c[3]
	}
	return cMax
}

// Normalize expands or shrinks c to exactly channelCount channels.
// Missing channels are padded with 255. Shrinking three or more channels
// to one averages the first three.
func Normalize(c Color, channelCount int) Color {
	if channelCount < 0 {
		channelCount = 0
	}
	switch {
	case len(c) < channelCount:
		out := make(Color, channelCount)
		copy(out, c)
		for i := len(c); i < channelCount; i++ {
			out[i] = 255
		}
		return out
	case len(c) > channelCount:
		if channelCount == 1 && len(c) >= 3 {
			v := float64(c[0]+c[1]+c[2]) / 3.0
			return Color{int(math.Round(v))}
		}
		out := make(Color, channelCount)
		copy(out, c[:channelCount])
		return out
	}
	out := make(Color, len(c))
	copy(out, c)
	return out
}

// NormalizeFloat maps a fraction of cMax onto a single 8-bit channel and
// then normalizes it to channelCount channels.
func NormalizeFloat(v float64, channelCount int, cMax float64) Color {
	return Normalize(Color{floatChannel(v, cMax)}, channelCount)
}

// NormalizeFloats maps each value as NormalizeFloat does and normalizes the
// assembled color to channelCount channels.
func NormalizeFloats(vs []float64, channelCount int, cMax float64) Color {
	c := make(Color, len(vs))
	for i, v := range vs {
		c[i] = floatChannel(v, cMax)
	}
	return Normalize(c, channelCount)
}

// NormalizeValue accepts any supported color shape: an integer, a float,
// or a slice of either. Anything else yields ErrColorShape.
func NormalizeValue(v any, channelCount int, cMax float64) (Color, error) {
	switch t := v.(type) {
	case Color:
		return Normalize(t, channelCount), nil
	case []int:
		return Normalize(Color(t), channelCount), nil
	case []uint8:
		c := make(Color, len(t))
		for i, b := range t {
			c[i] = int(b)
		}
		return Normalize(c, channelCount), nil
	case []float64:
		return NormalizeFloats(t, channelCount, cMax), nil
	case []float32:
		fs := make([]float64, len(t))
		for i, f := range t {
			fs[i] = float64(f)
		}
		return NormalizeFloats(fs, channelCount, cMax), nil
	case int:
		return Normalize(Color{t}, channelCount), nil
	case uint8:
		return Normalize(Color{int(t)}, channelCount), nil
	case float64:
		return NormalizeFloat(t, channelCount, cMax), nil
	case float32:
		return NormalizeFloat(float64(t), channelCount, cMax), nil
	}
	return nil, fmt.Errorf("normalize %T: %w", v, ErrColorShape)
}

func floatChannel(v, cMax float64) int {
	if cMax <= 0 {
		cMax = 1.0
	}
	if v > cMax {
		v = cMax
	} else if v < 0 {
		v = 0
	}
	return int(math.Round((v / cMax) * 255))
}
