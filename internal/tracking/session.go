// Package tracking drives detection cycles for a single selected target and
// forwards their results to the UI and the AR trigger.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ironsheep/color-tracker-mcp/internal/detection"
	"github.com/ironsheep/color-tracker-mcp/internal/signature"
)

// DefaultMinSelectionSize is the size a selection must exceed in both
// dimensions to become a reference.
const DefaultMinSelectionSize = 10

var (
	// ErrSelectionTooSmall is returned for selections not larger than the
	// minimum size in both dimensions.
	ErrSelectionTooSmall = errors.New("selection too small")

	// ErrNoReference is returned when tracking is started before a target
	// was selected.
	ErrNoReference = errors.New("no reference selected")

	// ErrNotTracking is returned by Tick while the session is stopped.
	ErrNotTracking = errors.New("tracking is not running")
)

// Activator starts and releases the AR session triggered by a strong match.
// Activate may block on device or permission negotiation.
type Activator interface {
	Activate(ctx context.Context, trigger *detection.Result) error
	Release() error
}

// Update is what a sink receives after every tick.
type Update struct {
	// Result is the fresh or retained detection result; nil when there is
	// none yet or the tick was rejected.
	Result *detection.Result

	// Fresh is true when Result was computed on this tick.
	Fresh bool

	// ARActive reports whether an AR session has been triggered.
	ARActive bool

	// Err is set when the tick was rejected.
	Err error

	// At is the tick time.
	At time.Time
}

// Sink consumes tick updates. It is responsible for all presentation.
type Sink interface {
	Deliver(Update)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Update)

// Deliver calls f(u).
func (f SinkFunc) Deliver(u Update) { f(u) }

// Options configures a Session. Zero fields fall back to defaults.
type Options struct {
	Cycle            *detection.Cycle
	MinSelectionSize int
	Activator        Activator
	Sink             Sink
	Logger           *slog.Logger
}

// Status is a point-in-time copy of a session's state.
type Status struct {
	Tracking   bool                 `json:"tracking"`
	ARActive   bool                 `json:"ar_active"`
	Reference  *detection.Reference `json:"reference,omitempty"`
	LastResult *detection.Result    `json:"last_result,omitempty"`
	LastTick   time.Time            `json:"last_tick"`
}

// Session owns the state shared between the render loop and target
// selection: the active reference, the last result, the rate-limit
// timestamp and the tracking and AR flags.
//
// All state lives behind one mutex. A tick runs its detection cycle while
// holding it, so cycles are strictly sequential and a re-selection can never
// interleave with a comparison.
type Session struct {
	mu        sync.Mutex
	cycle     *detection.Cycle
	minSize   int
	activator Activator
	sink      Sink
	logger    *slog.Logger

	reference *detection.Reference
	last      *detection.Result
	lastTick  time.Time
	tracking  bool
	arActive  bool

	// activating is set while Activate runs outside the lock; epoch counts
	// Stop calls so a finished activation can tell it was overtaken.
	activating bool
	epoch      uint64
}

// NewSession creates a stopped session with no reference.
func NewSession(opts Options) *Session {
	s := &Session{
		cycle:     opts.Cycle,
		minSize:   opts.MinSelectionSize,
		activator: opts.Activator,
		sink:      opts.Sink,
		logger:    opts.Logger,
	}
	if s.cycle == nil {
		s.cycle = detection.NewCycle()
	}
	if s.minSize <= 0 {
		s.minSize = DefaultMinSelectionSize
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Select makes region of frame the new reference.
//
// The reference, the last result and the rate-limit timestamp are replaced
// together, so the next tick compares against the new reference immediately
// and a stale result is never reported for it.
func (s *Session) Select(frame *signature.PixelBuffer, region signature.Region) (*detection.Reference, error) {
	if region.Width <= s.minSize || region.Height <= s.minSize {
		return nil, fmt.Errorf("%w: %dx%d, need more than %d in both dimensions",
			ErrSelectionTooSmall, region.Width, region.Height, s.minSize)
	}

	ref, err := detection.NewReference(frame, region, s.cycle.Extractor)
	if err != nil {
		return nil, err
	}

	s.SetReference(ref)
	s.logger.Info("reference selected",
		"id", ref.ID,
		"region", region,
		"hue", ref.Signature.Hue,
		"saturation", ref.Signature.Saturation,
		"degenerate", ref.Signature.Degenerate())
	return ref, nil
}

// SetReference installs ref as the active reference, discarding the last
// result. A nil ref clears the reference.
func (s *Session) SetReference(ref *detection.Reference) {
	s.mu.Lock()
	s.reference = ref
	s.last = nil
	s.lastTick = time.Time{}
	s.mu.Unlock()
}

// Start begins tracking. A reference must have been selected.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reference == nil {
		return ErrNoReference
	}
	if !s.tracking {
		s.tracking = true
		s.logger.Info("tracking started", "reference", s.reference.ID)
	}
	return nil
}

// Stop halts tracking and releases an active AR session.
//
// After Stop returns, Tick refuses to run until Start is called again.
// Stopping a stopped session is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	wasTracking := s.tracking
	// An in-flight activation releases itself once Activate returns.
	release := s.arActive && !s.activating && s.activator != nil
	s.tracking = false
	s.arActive = false
	s.epoch++
	s.last = nil
	s.lastTick = time.Time{}
	s.mu.Unlock()

	if wasTracking {
		s.logger.Info("tracking stopped")
	}
	if release {
		if err := s.activator.Release(); err != nil {
			return fmt.Errorf("failed to release AR session: %w", err)
		}
	}
	return nil
}

// ARSessionEnded records that the AR session was closed externally so the
// next strong match may trigger it again.
func (s *Session) ARSessionEnded() {
	s.mu.Lock()
	s.arActive = false
	s.mu.Unlock()
	s.logger.Info("AR session ended")
}

// Tick runs one render-loop tick at now with the current frame.
//
// The detection cycle decides whether to compare or reuse the last result.
// A fresh strong match triggers the activator once; further strong matches
// are ignored until the AR session ends or tracking stops. Every tick,
// including a rejected one, is delivered to the sink.
//
// Returns ErrNotTracking while stopped, or the cycle's error when the tick
// was rejected.
func (s *Session) Tick(ctx context.Context, now time.Time, frame *signature.PixelBuffer) (Update, error) {
	s.mu.Lock()
	if !s.tracking {
		s.mu.Unlock()
		return Update{}, ErrNotTracking
	}

	prevTick := s.lastTick
	res, next, err := s.cycle.Tick(now, frame, s.reference, s.last, s.lastTick)
	s.lastTick = next
	s.last = res

	u := Update{
		Result: res,
		Fresh:  err == nil && !next.Equal(prevTick),
		Err:    err,
		At:     now,
	}
	trigger := u.Fresh && res != nil && res.Tier == signature.TierStrong &&
		!s.arActive && s.activator != nil
	epoch := s.epoch
	if trigger {
		s.arActive = true
		s.activating = true
	}
	u.ARActive = s.arActive
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("detection tick rejected", "error", err)
	} else if u.Fresh && res != nil {
		s.logger.Debug("detection",
			"matched", res.Matched,
			"confidence", res.Confidence,
			"difference", res.Difference,
			"tier", res.Tier)
	}

	if trigger && !s.activate(ctx, res, epoch) {
		u.ARActive = false
	}
	if s.sink != nil {
		s.sink.Deliver(u)
	}
	return u, err
}

// activate runs the activator outside the lock and reports whether AR is
// left active. A failed activation clears the flag so a later strong match
// can retry. If the session was stopped while Activate ran, the new AR
// session is released here.
func (s *Session) activate(ctx context.Context, trigger *detection.Result, epoch uint64) bool {
	s.logger.Info("strong match, activating AR", "confidence", trigger.Confidence)
	err := s.activator.Activate(ctx, trigger)

	s.mu.Lock()
	s.activating = false
	stopped := s.epoch != epoch
	if err != nil && !stopped {
		s.arActive = false
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("AR activation failed", "error", err)
		return false
	}
	if stopped {
		s.logger.Info("tracking stopped during AR activation, releasing")
		if rerr := s.activator.Release(); rerr != nil {
			s.logger.Error("failed to release AR session", "error", rerr)
		}
		return false
	}
	return true
}

// Status returns a copy of the session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Tracking:   s.tracking,
		ARActive:   s.arActive,
		Reference:  s.reference,
		LastResult: s.last,
		LastTick:   s.lastTick,
	}
}
