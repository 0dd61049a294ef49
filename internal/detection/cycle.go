package detection

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/color-tracker-mcp/internal/signature"
)

// DefaultInterval is the minimum time between two signature comparisons.
const DefaultInterval = time.Second

// ErrOutOfBounds is returned when the centered focus region does not fit
// inside the frame.
var ErrOutOfBounds = signature.ErrOutOfBounds

// Reference is the target a tracking session looks for.
//
// A Reference is immutable once built. Selecting a new target replaces the
// whole value.
type Reference struct {
	ID        uuid.UUID           `json:"id"`
	Region    signature.Region    `json:"region"`    // Bounding region in the source frame
	Signature signature.Signature `json:"signature"` // Signature of that region
}

// NewReference extracts the signature of region from frame and wraps it in a
// Reference with a fresh ID.
func NewReference(frame *signature.PixelBuffer, region signature.Region, extractor signature.Extractor) (*Reference, error) {
	buf, err := frame.Region(region)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference region: %w", err)
	}
	sig, err := extractor.Extract(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to extract reference signature: %w", err)
	}
	return &Reference{ID: uuid.New(), Region: region, Signature: sig}, nil
}

// Result is the outcome of one comparison.
type Result struct {
	// Matched is false when the difference exceeded the threshold. In that
	// case Confidence is 0 and Tier is TierNone.
	Matched bool `json:"matched"`

	// Confidence is the match percentage in [0,100].
	Confidence float64 `json:"confidence"`

	// Difference is the weighted signature distance in [0,1].
	Difference float64 `json:"difference"`

	// Tier classifies Confidence; TierNone when not matched.
	Tier signature.Tier `json:"tier"`

	// FocusRegion is the frame area that was compared.
	FocusRegion signature.Region `json:"focus_region"`

	// Signature is the signature of FocusRegion.
	Signature signature.Signature `json:"signature"`

	// ReferenceID identifies the Reference this result was computed against.
	ReferenceID uuid.UUID `json:"reference_id"`

	// At is the tick time that produced the result.
	At time.Time `json:"at"`
}

// FocusRegion returns the width x height rectangle centered in a
// frameWidth x frameHeight frame.
//
// Returns ErrOutOfBounds if the rectangle is empty or larger than the frame
// in either dimension; the region is never clamped.
func FocusRegion(frameWidth, frameHeight, width, height int) (signature.Region, error) {
	r := signature.Region{
		X:      int(math.Floor(float64(frameWidth)/2 - float64(width)/2)),
		Y:      int(math.Floor(float64(frameHeight)/2 - float64(height)/2)),
		Width:  width,
		Height: height,
	}
	if r.Empty() || r.X < 0 || r.Y < 0 || r.X+r.Width > frameWidth || r.Y+r.Height > frameHeight {
		return signature.Region{}, fmt.Errorf("%w: %dx%d focus region in %dx%d frame",
			ErrOutOfBounds, width, height, frameWidth, frameHeight)
	}
	return r, nil
}

// Cycle compares a reference against the frame center at a limited rate.
//
// The zero value compares at most once per DefaultInterval using the
// default extractor and comparator.
type Cycle struct {
	Interval   time.Duration
	Extractor  signature.Extractor
	Comparator signature.Comparator
}

// NewCycle returns a Cycle with the default interval, extractor and comparator.
func NewCycle() *Cycle {
	return &Cycle{
		Interval:   DefaultInterval,
		Extractor:  signature.DefaultExtractor(),
		Comparator: signature.DefaultComparator(),
	}
}

// Due reports whether a comparison should run at now given the time of the
// previous one. A zero lastTick is always due.
func (c *Cycle) Due(now, lastTick time.Time) bool {
	if lastTick.IsZero() {
		return true
	}
	interval := c.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return now.Sub(lastTick) >= interval
}

// Tick runs one detection cycle.
//
// Parameters:
//   - now: The time of this tick.
//   - frame: The current frame. Only read when a comparison runs.
//   - ref: The active reference, or nil when there is none.
//   - prev: The result of the last comparison, returned as-is when the
//     interval has not elapsed.
//   - lastTick: The time of the last comparison (zero if none).
//
// Returns:
//   - *Result: The fresh or retained result; nil when ref is nil or the
//     tick was rejected.
//   - time.Time: The lastTick to pass to the next call.
//   - error: ErrOutOfBounds if the focus region does not fit in the frame,
//     ErrMalformedBuffer if the frame is inconsistent. A rejected tick still
//     consumes the interval so a misaimed frame is not rescanned every frame.
func (c *Cycle) Tick(now time.Time, frame *signature.PixelBuffer, ref *Reference, prev *Result, lastTick time.Time) (*Result, time.Time, error) {
	if ref == nil {
		return nil, lastTick, nil
	}
	if !c.Due(now, lastTick) {
		return prev, lastTick, nil
	}

	if err := frame.Validate(); err != nil {
		return nil, now, err
	}
	focus, err := FocusRegion(frame.Width, frame.Height, ref.Region.Width, ref.Region.Height)
	if err != nil {
		return nil, now, err
	}
	buf, err := frame.Region(focus)
	if err != nil {
		return nil, now, err
	}
	sig, err := c.Extractor.Extract(buf)
	if err != nil {
		return nil, now, err
	}

	res := &Result{
		FocusRegion: focus,
		Signature:   sig,
		ReferenceID: ref.ID,
		At:          now,
	}
	m, ok := c.Comparator.Compare(ref.Signature, sig)
	res.Difference = m.Difference
	res.Tier = m.Tier
	if ok {
		res.Matched = true
		res.Confidence = m.Confidence
	}
	return res, now, nil
}
