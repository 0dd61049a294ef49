package signature

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultStride samples every 4th pixel of a buffer.
	DefaultStride = 4

	// DefaultNoiseFloor is the saturation at or below which a pixel is
	// treated as gray and ignored.
	DefaultNoiseFloor = 0.1
)

// Signature is the brightness-invariant color descriptor of a region.
//
// The zero value {0, 0} is the degenerate signature of a region with no
// sufficiently saturated pixel. It is valid but carries no distinctive
// color, so comparisons against it rarely produce confident matches.
type Signature struct {
	Hue        float64 `json:"hue"`        // Circular mean hue: [0,1)
	Saturation float64 `json:"saturation"` // Mean saturation of retained pixels: [0,1]
}

// Degenerate reports whether s is the "no distinctive color" signature.
func (s Signature) Degenerate() bool {
	return s.Hue == 0 && s.Saturation == 0
}

// Extractor reduces pixel buffers to signatures.
//
// The zero value uses DefaultStride and DefaultNoiseFloor.
type Extractor struct {
	// Stride is the step, in pixels, between samples in row-major order.
	Stride int

	// NoiseFloor is the saturation a pixel must exceed to be retained.
	NoiseFloor float64
}

// DefaultExtractor returns an Extractor with the default stride and noise floor.
func DefaultExtractor() Extractor {
	return Extractor{Stride: DefaultStride, NoiseFloor: DefaultNoiseFloor}
}

// Extract computes the signature of buf.
//
// Parameters:
//   - buf: The region to reduce. It is read, never modified.
//
// Returns:
//   - Signature: The aggregate hue and saturation, or the degenerate {0, 0}
//     when no sampled pixel is saturated above the noise floor.
//   - error: ErrMalformedBuffer if buf is nil or inconsistent.
//
// # Algorithm
//
// Pixels are visited at indices 0, Stride, 2*Stride, ... of the flattened
// row-major grid. Each retained pixel contributes the unit vector of its hue
// angle scaled by its saturation; the signature hue is the angle of the
// summed vector, normalized to [0,1):
//
//	hue = (atan2(Σ s·sin 2πh, Σ s·cos 2πh) / 2π + 1) mod 1
//
// Saturation is the plain mean over retained pixels. Gray pixels are
// excluded from both averages.
//
// The result depends only on the buffer contents, so repeated extraction
// of the same buffer yields identical signatures.
func (e Extractor) Extract(buf *PixelBuffer) (Signature, error) {
	if err := buf.Validate(); err != nil {
		return Signature{}, err
	}

	stride := e.Stride
	if stride < 1 {
		stride = DefaultStride
	}
	floor := e.NoiseFloor
	if floor <= 0 {
		floor = DefaultNoiseFloor
	}

	n := buf.Width * buf.Height
	angles := make([]float64, 0, n/stride+1)
	sats := make([]float64, 0, n/stride+1)

	for p := 0; p < n; p += stride {
		i := p * 4
		hsv := ToHSV(buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2])
		if hsv.S <= floor {
			continue
		}
		angles = append(angles, hsv.H*2*math.Pi)
		sats = append(sats, hsv.S)
	}

	if len(sats) == 0 {
		return Signature{}, nil
	}

	// Saturation doubles as the weight of each hue vector
	mean := stat.CircularMean(angles, sats)
	hue := math.Mod(mean/(2*math.Pi)+1, 1)

	return Signature{
		Hue:        hue,
		Saturation: stat.Mean(sats, nil),
	}, nil
}
