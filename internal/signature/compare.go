package signature

import (
	"fmt"
	"math"
)

const (
	// DefaultThreshold is the largest difference still considered a match.
	DefaultThreshold = 0.25

	// DefaultHueWeight is the share of the difference contributed by hue.
	// Saturation contributes the remainder.
	DefaultHueWeight = 0.7

	// confidencePerDifference maps difference 0 to confidence 100 and the
	// default threshold to confidence 0.
	confidencePerDifference = 400
)

// Tier classifies the strength of a comparison.
type Tier int

const (
	// TierNone means the difference exceeded the threshold: no match.
	TierNone Tier = iota
	// TierWeak is a match with confidence at or below 40.
	TierWeak
	// TierProbable is a match with confidence above 40 and at most 80.
	TierProbable
	// TierStrong is a match with confidence above 80.
	TierStrong
)

var tierNames = [...]string{"none", "weak", "probable", "strong"}

// String returns the lower-case tier name.
func (t Tier) String() string {
	if t < TierNone || t > TierStrong {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

// MarshalText encodes the tier by name so JSON results stay readable.
func (t Tier) MarshalText() ([]byte, error) {
	if t < TierNone || t > TierStrong {
		return nil, fmt.Errorf("invalid tier %d", int(t))
	}
	return []byte(tierNames[t]), nil
}

// UnmarshalText decodes a tier name.
func (t *Tier) UnmarshalText(text []byte) error {
	for i, name := range tierNames {
		if name == string(text) {
			*t = Tier(i)
			return nil
		}
	}
	return fmt.Errorf("unknown tier %q", text)
}

// ClassifyConfidence maps a match confidence to its tier. It never returns
// TierNone; "no match" is decided by the threshold, not by confidence.
func ClassifyConfidence(confidence float64) Tier {
	switch {
	case confidence > 80:
		return TierStrong
	case confidence > 40:
		return TierProbable
	default:
		return TierWeak
	}
}

// HueDistance returns the shorter-arc distance between two hues in [0,1).
// The result lies in [0, 0.5].
func HueDistance(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 0.5 {
		d = 1 - d
	}
	return d
}

// Difference returns the weighted distance between two signatures using
// DefaultHueWeight. The result lies in [0, 1] and is symmetric.
func Difference(a, b Signature) float64 {
	return weightedDifference(a, b, DefaultHueWeight)
}

// Confidence maps a difference to a percentage: 100 at difference 0,
// falling linearly to 0 at the default threshold and clamped there.
// Only meaningful for differences that passed the threshold.
func Confidence(diff float64) float64 {
	return roundScore(math.Max(0, 100-diff*confidencePerDifference))
}

func weightedDifference(a, b Signature, hueWeight float64) float64 {
	hueDist := HueDistance(a.Hue, b.Hue)
	satDist := math.Abs(a.Saturation - b.Saturation)
	return roundScore(hueDist*hueWeight + satDist*(1-hueWeight))
}

// roundScore drops float noise below 1e-9 so that scores landing on a
// threshold or tier boundary compare exactly against it.
func roundScore(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

// Match is the outcome of comparing two signatures.
type Match struct {
	Difference float64 `json:"difference"`
	Confidence float64 `json:"confidence"`
	Tier       Tier    `json:"tier"`
}

// Comparator decides whether two signatures match.
//
// The zero value uses DefaultThreshold and DefaultHueWeight.
type Comparator struct {
	// Threshold is the largest difference that still counts as a match.
	Threshold float64

	// HueWeight is the weight of hue distance in [0,1].
	HueWeight float64
}

// DefaultComparator returns a Comparator with the default threshold and weights.
func DefaultComparator() Comparator {
	return Comparator{Threshold: DefaultThreshold, HueWeight: DefaultHueWeight}
}

// Difference returns the comparator's weighted distance between a and b.
func (c Comparator) Difference(a, b Signature) float64 {
	w := c.HueWeight
	if w <= 0 || w > 1 {
		w = DefaultHueWeight
	}
	return weightedDifference(a, b, w)
}

// Compare compares a reference signature against a candidate.
//
// Returns:
//   - Match: Always carries the difference. Confidence and Tier are only
//     filled in when the signatures match.
//   - bool: false when the difference exceeds the threshold. This is "no
//     match" (TierNone), distinct from a weak match with confidence 0.
func (c Comparator) Compare(ref, candidate Signature) (Match, bool) {
	threshold := c.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	diff := c.Difference(ref, candidate)
	if diff > threshold {
		return Match{Difference: diff, Tier: TierNone}, false
	}

	conf := Confidence(diff)
	return Match{
		Difference: diff,
		Confidence: conf,
		Tier:       ClassifyConfidence(conf),
	}, true
}
