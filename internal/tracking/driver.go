package tracking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ironsheep/color-tracker-mcp/internal/signature"
)

// DefaultFrameInterval approximates a 30 fps render loop.
const DefaultFrameInterval = 33 * time.Millisecond

// FrameSource supplies frames on demand. NextFrame returns io.EOF when the
// source has no more frames.
type FrameSource interface {
	NextFrame(ctx context.Context) (*signature.PixelBuffer, error)
}

// Driver stands in for the animation-frame callback: it pulls one frame per
// interval and ticks the session with it.
type Driver struct {
	Session  *Session
	Source   FrameSource
	Interval time.Duration

	// Now returns the tick time; time.Now when nil.
	Now func() time.Time

	Logger *slog.Logger
}

// Run ticks until ctx is cancelled, the source is exhausted or the session
// is stopped. The session is stopped on return, releasing any AR session.
//
// Rejected ticks (a focus region that does not fit, a malformed frame) are
// logged by the session and do not end the loop.
func (d *Driver) Run(ctx context.Context) (err error) {
	interval := d.Interval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	defer func() {
		if serr := d.Session.Stop(); serr != nil && err == nil {
			err = serr
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frames := 0
	for {
		select {
		case <-ctx.Done():
			logger.Info("driver cancelled", "frames", frames)
			return ctx.Err()
		case <-ticker.C:
		}

		frame, ferr := d.Source.NextFrame(ctx)
		if errors.Is(ferr, io.EOF) {
			logger.Info("frame source exhausted", "frames", frames)
			return nil
		}
		if ferr != nil {
			return fmt.Errorf("failed to read frame: %w", ferr)
		}
		frames++

		if _, terr := d.Session.Tick(ctx, now(), frame); errors.Is(terr, ErrNotTracking) {
			logger.Info("tracking stopped, driver exiting", "frames", frames)
			return nil
		}
	}
}
