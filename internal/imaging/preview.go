package imaging

import (
	"github.com/disintegration/imaging"

	"github.com/ironsheep/color-tracker-mcp/internal/signature"
)

// PreviewResult contains an encoded thumbnail of a selected target.
type PreviewResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// TargetPreview crops region out of frame and returns it as a PNG, scaled
// by scale when scale is positive and not 1.
func TargetPreview(frame *signature.PixelBuffer, region signature.Region, scale float64) (*PreviewResult, error) {
	sub, err := frame.Region(region)
	if err != nil {
		return nil, err
	}

	img := sub.Image()
	if scale != 1.0 && scale > 0 {
		w := max(1, int(float64(sub.Width)*scale))
		h := max(1, int(float64(sub.Height)*scale))
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	encoded, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	return &PreviewResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}
