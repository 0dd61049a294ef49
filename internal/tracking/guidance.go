package tracking

import (
	"fmt"
	"image/color"
	"math"

	"github.com/ironsheep/color-tracker-mcp/internal/detection"
	"github.com/ironsheep/color-tracker-mcp/internal/signature"
)

// Guidance is the on-screen feedback for a detection state.
type Guidance struct {
	Message    string     `json:"message"`
	Background color.RGBA `json:"-"`
	Stroke     color.RGBA `json:"-"`
	LineWidth  int        `json:"line_width"`
	Tier       string     `json:"tier"`
}

var (
	strokeStrong   = color.RGBA{0, 255, 0, 255}
	strokeProbable = color.RGBA{255, 255, 0, 255}
	strokeWeak     = color.RGBA{255, 153, 0, 255}
)

// GuidanceFor returns the message, colors and focus box stroke for a
// result. A nil result means nothing has been compared yet; the stroke is
// left transparent in that case and for "no match", since only a matched
// focus box is redrawn in a tier color.
func GuidanceFor(res *detection.Result) Guidance {
	if res == nil {
		return Guidance{
			Message:    "Tracking started...",
			Background: color.RGBA{0, 0, 0, 204},
			Tier:       "pending",
		}
	}

	pct := int(math.Round(res.Confidence))
	switch res.Tier {
	case signature.TierStrong:
		return Guidance{
			Message:    fmt.Sprintf("Aligned! (confidence: %d%%) - starting AR...", pct),
			Background: color.RGBA{0, 200, 0, 230},
			Stroke:     strokeStrong,
			LineWidth:  4,
			Tier:       res.Tier.String(),
		}
	case signature.TierProbable:
		return Guidance{
			Message:    fmt.Sprintf("Probably the target (confidence: %d%%)", pct),
			Background: color.RGBA{200, 200, 0, 230},
			Stroke:     strokeProbable,
			LineWidth:  3,
			Tier:       res.Tier.String(),
		}
	case signature.TierWeak:
		return Guidance{
			Message:    fmt.Sprintf("Not sure (confidence: %d%%)", pct),
			Background: color.RGBA{200, 100, 0, 230},
			Stroke:     strokeWeak,
			LineWidth:  3,
			Tier:       res.Tier.String(),
		}
	default:
		return Guidance{
			Message:    "Target not detected - aim the camera at the target",
			Background: color.RGBA{200, 0, 0, 204},
			Tier:       signature.TierNone.String(),
		}
	}
}

// ErrorGuidance is shown when a tick is rejected.
func ErrorGuidance(err error) Guidance {
	return Guidance{
		Message:    "Tracking error: " + err.Error(),
		Background: color.RGBA{200, 0, 0, 204},
		Tier:       "error",
	}
}
