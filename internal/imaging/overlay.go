package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/ironsheep/color-tracker-mcp/internal/signature"
)

// Box describes the solid focus box drawn for a matched result. A box with
// zero alpha is not drawn.
type Box struct {
	Color color.RGBA
	Width int
}

// OverlayResult contains a frame with guidance drawn over it.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

var (
	guideWhite   = color.RGBA{255, 255, 255, 255}
	labelBgColor = color.RGBA{0, 0, 0, 180}
)

const (
	guideDash      = 10 // dash and gap length of the focus outline
	guideWidth     = 3  // focus outline thickness
	crosshairArm   = 20 // crosshair half-length
	crosshairWidth = 2
)

// RenderGuidance draws the tracking guidance over a copy of frame.
//
// Always drawn:
//   - a white dashed outline around focus
//   - a white crosshair at the frame center
//
// When box has a visible color, a solid outline of box.Width pixels is drawn
// over the dashed one. A non-empty label is printed just above the focus
// region's top-left corner. Anything falling outside the frame is clipped.
func RenderGuidance(frame *signature.PixelBuffer, focus signature.Region, box Box, label string) (*OverlayResult, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	bounds := frame.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, frame.Image(), bounds.Min, draw.Src)

	drawRect(result, focus.Rect(), guideWidth, guideDash, guideWhite)

	cx, cy := frame.Width/2, frame.Height/2
	fillRect(result, image.Rect(cx-crosshairArm, cy-crosshairWidth/2, cx+crosshairArm, cy+crosshairWidth/2), guideWhite)
	fillRect(result, image.Rect(cx-crosshairWidth/2, cy-crosshairArm, cx+crosshairWidth/2, cy+crosshairArm), guideWhite)

	if box.Color.A > 0 && box.Width > 0 {
		drawRect(result, focus.Rect(), box.Width, 0, box.Color)
	}

	if label != "" {
		drawLabel(result, focus.X, focus.Y-labelHeight-2, label, guideWhite, labelBgColor)
	}

	encoded, err := encodePNG(result)
	if err != nil {
		return nil, err
	}

	return &OverlayResult{
		Width:       frame.Width,
		Height:      frame.Height,
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// drawRect outlines r with a stroke of the given width centered on its
// edges. A positive dash alternates dash-length runs of ink and gap.
func drawRect(img *image.RGBA, r image.Rectangle, width, dash int, c color.RGBA) {
	if width < 1 {
		width = 1
	}
	lo := -width / 2
	hi := lo + width

	ink := func(i int) bool {
		return dash <= 0 || (i/dash)%2 == 0
	}

	for x := r.Min.X; x < r.Max.X; x++ {
		if !ink(x - r.Min.X) {
			continue
		}
		for o := lo; o < hi; o++ {
			img.Set(x, r.Min.Y+o, c)
			img.Set(x, r.Max.Y-1+o, c)
		}
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		if !ink(y - r.Min.Y) {
			continue
		}
		for o := lo; o < hi; o++ {
			img.Set(r.Min.X+o, y, c)
			img.Set(r.Max.X-1+o, y, c)
		}
	}
}

// fillRect paints r clipped to the image.
func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

const (
	charWidth   = 4
	labelHeight = 7
)

// drawLabel draws a short label with a simple 3x5 pixel font.
// Only digits, '%', '.' and ',' have glyphs; other runes leave a gap.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		'%': {"101", "001", "010", "100", "101"},
		'.': {"000", "000", "000", "000", "010"},
		',': {"000", "000", "000", "010", "010"},
	}

	labelWidth := len(text) * charWidth
	fillRect(img, image.Rect(x-1, y-1, x+labelWidth, y+labelHeight), bg)

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					img.Set(cx+col, y+1+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
