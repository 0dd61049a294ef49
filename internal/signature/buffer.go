package signature

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

var (
	// ErrMalformedBuffer is returned for buffers whose dimensions and pixel
	// data disagree.
	ErrMalformedBuffer = errors.New("malformed pixel buffer")

	// ErrOutOfBounds is returned when a region does not fit inside a buffer.
	ErrOutOfBounds = errors.New("region outside buffer bounds")
)

// Region is a rectangle in buffer coordinates.
//
// (X, Y) is the top-left corner (inclusive); the region spans Width columns
// and Height rows.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether the region covers no pixels.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// RegionFromRect converts an image.Rectangle to a Region.
func RegionFromRect(rect image.Rectangle) Region {
	rect = rect.Canon()
	return Region{X: rect.Min.X, Y: rect.Min.Y, Width: rect.Dx(), Height: rect.Dy()}
}

// PixelBuffer is a rectangular grid of non-premultiplied RGBA samples.
//
// Pixels are stored row-major, 4 bytes per pixel, with no row padding, so
// the pixel at (x, y) starts at Pix[(y*Width+x)*4]. A buffer is owned by
// whoever captured it and is never modified by this package.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []byte
}

// NewPixelBuffer wraps raw RGBA bytes after checking that their length
// matches the dimensions. The slice is not copied.
func NewPixelBuffer(width, height int, pix []byte) (*PixelBuffer, error) {
	b := &PixelBuffer{Width: width, Height: height, Pix: pix}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// FromImage copies any image into a new PixelBuffer.
//
// The image is converted to non-premultiplied RGBA and re-based so that its
// top-left pixel becomes (0, 0).
func FromImage(img image.Image) *PixelBuffer {
	return fromNRGBA(imaging.Clone(img))
}

// fromNRGBA adopts the pixels of an origin-based, unpadded NRGBA image as
// produced by the imaging package.
func fromNRGBA(n *image.NRGBA) *PixelBuffer {
	return &PixelBuffer{
		Width:  n.Rect.Dx(),
		Height: n.Rect.Dy(),
		Pix:    n.Pix,
	}
}

// Validate checks the buffer's invariants. A nil buffer is malformed.
func (b *PixelBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrMalformedBuffer)
	}
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrMalformedBuffer, b.Width, b.Height)
	}
	if b.Width > 0 && b.Height > math.MaxInt/4/b.Width {
		return fmt.Errorf("%w: dimensions %dx%d overflow", ErrMalformedBuffer, b.Width, b.Height)
	}
	if want := b.Width * b.Height * 4; len(b.Pix) != want {
		return fmt.Errorf("%w: %dx%d needs %d bytes, got %d", ErrMalformedBuffer, b.Width, b.Height, want, len(b.Pix))
	}
	return nil
}

// Bounds returns the buffer's extent as an image.Rectangle anchored at the origin.
func (b *PixelBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// Image exposes the buffer as an *image.NRGBA that shares its pixels.
// Callers must not draw into the returned image.
func (b *PixelBuffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   b.Bounds(),
	}
}

// Region copies a sub-rectangle into a new buffer.
//
// Returns ErrOutOfBounds if the region is empty or extends past any edge of
// the buffer. Nothing is clamped.
func (b *PixelBuffer) Region(r Region) (*PixelBuffer, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if r.Empty() || !r.Rect().In(b.Bounds()) {
		return nil, fmt.Errorf("%w: region (%d,%d) %dx%d in %dx%d buffer",
			ErrOutOfBounds, r.X, r.Y, r.Width, r.Height, b.Width, b.Height)
	}
	return fromNRGBA(imaging.Crop(b.Image(), r.Rect())), nil
}
