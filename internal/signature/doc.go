// Package signature reduces pixel regions to brightness-invariant color
// signatures and compares them.
//
// A signature is the aggregate (hue, saturation) of a region. Value is
// deliberately dropped so the same object under brighter or dimmer lighting
// produces nearly the same signature.
//
// # Pixel Buffers
//
// PixelBuffer is a row-major grid of non-premultiplied RGBA samples, 4 bytes
// per pixel, with the origin at the top-left corner. Buffers are treated as
// immutable: nothing in this package writes to Pix.
//
// # Extraction
//
// Extractor samples every Stride-th pixel in row-major order, converts it to
// HSV and drops pixels whose saturation is at or below the noise floor. Hue
// is averaged as a saturation-weighted circular mean so that reds on either
// side of the 0/1 wraparound average to red instead of cyan.
//
// # Comparison
//
// Difference combines the shorter-arc hue distance and the absolute
// saturation distance, weighting hue at 0.7. A difference above the match
// threshold (0.25) is "no match", which is a separate state from a match
// with zero confidence:
//
//	match, ok := signature.DefaultComparator().Compare(ref, focus)
//	if !ok {
//	    // no match, confidence is not computed
//	}
//
// # Error Handling
//
// Operations that read a buffer return ErrMalformedBuffer for negative
// dimensions or a Pix slice whose length is not Width*Height*4, and
// ErrOutOfBounds for regions that do not fit inside the buffer. They never
// index outside Pix.
package signature
