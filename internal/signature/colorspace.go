package signature

import (
	colorful "github.com/lucasb-eyer/go-colorful"
)

// HSV represents a color in HSV space with every component normalized.
type HSV struct {
	H float64 `json:"hue"`        // Hue: [0,1) (0=red, 1/3=green, 2/3=blue)
	S float64 `json:"saturation"` // Saturation: [0,1] (0=gray)
	V float64 `json:"value"`      // Value: [0,1] (0=black)
}

// ToHSV converts 8-bit RGB components to normalized HSV.
//
// The conversion is total: every 0-255 triple maps to a valid HSV value.
//   - V is max(r,g,b)/255
//   - S is 0 when V is 0, otherwise (max-min)/max
//   - H is taken from whichever channel is largest and folded into [0,1);
//     grays (r=g=b) have hue 0
func ToHSV(r, g, b uint8) HSV {
	c := colorful.Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}
	h, s, v := c.Hsv()

	// go-colorful reports hue in degrees [0,360)
	h /= 360.0
	if h >= 1 || h < 0 {
		h = 0
	}

	return HSV{H: h, S: s, V: v}
}
