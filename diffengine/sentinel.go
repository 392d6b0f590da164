package diffengine

import (
	"errors"
	"fmt"

	"pixeldiff/pixel"
)

// ErrNoChangeColor is returned when the nochange color has an unusable shape.
var ErrNoChangeColor = errors.New("invalid nochange color")

// DefaultNoChange is opaque black.
var DefaultNoChange = pixel.Color{0, 0, 0, 255}

// Sentinels holds the colors painted for pixels present in only one image.
type Sentinels struct {
	Add pixel.Color
	Del pixel.Color
}

// ChooseSentinels picks the added (green) and removed (red) colors for a
// diff whose background is nochange, falling back to alternatives when a
// sentinel would be indistinguishable from the background.
func ChooseSentinels(nochange pixel.Color, cMax int) (Sentinels, error) {
	if err := validateNoChange(nochange, cMax); err != nil {
		return Sentinels{}, err
	}
	n := len(nochange)
	half := cMax / 2

	var add, del pixel.Color
	if n == 1 {
		add = pixel.Color{cMax}
		del = pixel.Color{cMax}
	} else {
		add = pixel.Normalize(pixel.Color{0, cMax, 0, cMax}, n)
		del = pixel.Normalize(pixel.Color{cMax, 0, 0, cMax}, n)
	}

	add = firstDistinct(nochange, add,
		pixel.Color{0, half, 0, cMax},
		pixel.Color{cMax, cMax, 0, cMax})
	del = firstDistinct(nochange, del,
		pixel.Color{half, 0, 0, cMax},
		pixel.Color{cMax, 0, cMax, cMax})
	return Sentinels{Add: add, Del: del}, nil
}

// firstDistinct returns preferred unless it equals nochange, otherwise the
// first fallback (normalized to nochange's length) that differs from it.
// The last fallback is used even if it collides.
func firstDistinct(nochange, preferred pixel.Color, fallbacks ...pixel.Color) pixel.Color {
	if !preferred.Equal(nochange) {
		return preferred
	}
	var c pixel.Color
	for _, fb := range fallbacks {
		c = pixel.Normalize(fb, len(nochange))
		if !c.Equal(nochange) {
			return c
		}
	}
	return c
}

func validateNoChange(nochange pixel.Color, cMax int) error {
	if len(nochange) == 0 || len(nochange) > 4 {
		return fmt.Errorf("%d channels: %w", len(nochange), ErrNoChangeColor)
	}
	for _, v := range nochange {
		if v < 0 || v > cMax {
			return fmt.Errorf("channel value %d outside [0, %d]: %w", v, cMax, ErrNoChangeColor)
		}
	}
	return nil
}
