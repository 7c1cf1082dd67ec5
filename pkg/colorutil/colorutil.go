// Package colorutil provides shared color utilities for ripecheck.
package colorutil

import (
	"image/color"
	"math"
)

// Display colors for the ripeness labels.
var (
	Gray   = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	Green  = color.NRGBA{R: 0x55, G: 0x8B, B: 0x2F, A: 0xFF}
	Yellow = color.NRGBA{R: 0xF9, G: 0xD3, B: 0x3C, A: 0xFF}
	Brown  = color.NRGBA{R: 0x79, G: 0x55, B: 0x48, A: 0xFF}
)

// RGBToHSV converts 8-bit RGB to HSV with H in degrees [0, 360) and S, V in [0, 1].
func RGBToHSV(r, g, b uint8) (h, s, v float64) {
	rf := float64(r) / 255.0
	gf := float64(g) / 255.0
	bf := float64(b) / 255.0

	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	diff := maxC - minC

	v = maxC

	if maxC > 0 {
		s = diff / maxC
	}

	switch {
	case diff == 0:
		h = 0
	case maxC == rf:
		h = (gf - bf) / diff
		if gf < bf {
			h += 6
		}
	case maxC == gf:
		h = (bf-rf)/diff + 2
	default:
		h = (rf-gf)/diff + 4
	}

	h *= 60
	if h >= 360 {
		h -= 360
	}

	return h, s, v
}

// ColorHSV converts any color.Color to HSV. Alpha is ignored; the color is
// un-premultiplied first so translucent pixels keep their hue.
func ColorHSV(c color.Color) (h, s, v float64) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGBToHSV(n.R, n.G, n.B)
}
