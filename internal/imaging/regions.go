package imaging

import (
	"fmt"

	"github.com/ironsheep/color-tracker-mcp/internal/signature"
)

// RegionComparison is the signature comparison of two regions of one frame.
type RegionComparison struct {
	Region1    signature.Signature `json:"region1"`
	Region2    signature.Signature `json:"region2"`
	Matched    bool                `json:"matched"`
	Difference float64             `json:"difference"`
	Confidence float64             `json:"confidence"`
	Tier       signature.Tier      `json:"tier"`
}

// CompareRegionSignatures extracts a signature from each region and compares
// them with r1 as the reference. This is the still-photo counterpart of a
// detection cycle: both sides go through the same extractor and comparator.
func CompareRegionSignatures(frame *signature.PixelBuffer, r1, r2 signature.Region,
	extractor signature.Extractor, comparator signature.Comparator) (*RegionComparison, error) {
	s1, err := regionSignature(frame, r1, extractor)
	if err != nil {
		return nil, fmt.Errorf("region1: %w", err)
	}
	s2, err := regionSignature(frame, r2, extractor)
	if err != nil {
		return nil, fmt.Errorf("region2: %w", err)
	}

	m, ok := comparator.Compare(s1, s2)
	return &RegionComparison{
		Region1:    s1,
		Region2:    s2,
		Matched:    ok,
		Difference: m.Difference,
		Confidence: m.Confidence,
		Tier:       m.Tier,
	}, nil
}

func regionSignature(frame *signature.PixelBuffer, r signature.Region, extractor signature.Extractor) (signature.Signature, error) {
	buf, err := frame.Region(r)
	if err != nil {
		return signature.Signature{}, err
	}
	return extractor.Extract(buf)
}
