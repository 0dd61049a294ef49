package tracking

import (
	"context"
	"errors"
	"image/color"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/color-tracker-mcp/internal/detection"
	"github.com/ironsheep/color-tracker-mcp/internal/signature"
)

var (
	red    = color.NRGBA{220, 30, 30, 255}
	orange = color.NRGBA{230, 120, 40, 255}
	cyan   = color.NRGBA{30, 220, 220, 255}
	gray   = color.NRGBA{128, 128, 128, 255}
)

// selection is where the reference patch sits in the capture frame
var selection = signature.Region{X: 4, Y: 4, Width: 20, Height: 12}

// createFrame returns a 100x80 gray frame with a patch of c at region
func createFrame(region signature.Region, c color.NRGBA) *signature.PixelBuffer {
	const width, height = 100, 80
	pix := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := gray
			if x >= region.X && x < region.X+region.Width && y >= region.Y && y < region.Y+region.Height {
				px = c
			}
			i := (y*width + x) * 4
			pix[i], pix[i+1], pix[i+2], pix[i+3] = px.R, px.G, px.B, px.A
		}
	}
	return &signature.PixelBuffer{Width: width, Height: height, Pix: pix}
}

// aimed returns a frame with a patch of c under the focus region of the
// 20x12 selection
func aimed(c color.NRGBA) *signature.PixelBuffer {
	return createFrame(signature.Region{X: 40, Y: 34, Width: 20, Height: 12}, c)
}

type fakeActivator struct {
	mu        sync.Mutex
	activated int
	released  int
	fail      error
}

func (a *fakeActivator) Activate(ctx context.Context, trigger *detection.Result) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.activated++
	return a.fail
}

func (a *fakeActivator) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.released++
	return nil
}

func (a *fakeActivator) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activated, a.released
}

type recordingSink struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recordingSink) Deliver(u Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *recordingSink) all() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Update(nil), r.updates...)
}

func newTestSession(t *testing.T, act Activator, sink Sink) *Session {
	t.Helper()
	s := NewSession(Options{Activator: act, Sink: sink})
	_, err := s.Select(createFrame(selection, red), selection)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	return s
}

func TestSession_SelectTooSmall(t *testing.T) {
	s := NewSession(Options{})
	frame := createFrame(selection, red)

	for _, r := range []signature.Region{
		{X: 0, Y: 0, Width: 10, Height: 30},
		{X: 0, Y: 0, Width: 30, Height: 10},
		{X: 0, Y: 0, Width: 0, Height: 0},
	} {
		_, err := s.Select(frame, r)
		assert.ErrorIs(t, err, ErrSelectionTooSmall, "region %+v", r)
	}

	ref, err := s.Select(frame, signature.Region{X: 0, Y: 0, Width: 11, Height: 11})
	require.NoError(t, err)
	assert.NotNil(t, ref)
}

func TestSession_SelectOutOfBounds(t *testing.T) {
	s := NewSession(Options{})
	_, err := s.Select(createFrame(selection, red), signature.Region{X: 90, Y: 70, Width: 20, Height: 20})
	assert.ErrorIs(t, err, signature.ErrOutOfBounds)
	assert.Nil(t, s.Status().Reference)
}

func TestSession_StartRequiresReference(t *testing.T) {
	s := NewSession(Options{})
	assert.ErrorIs(t, s.Start(), ErrNoReference)

	_, err := s.Tick(context.Background(), time.UnixMilli(1000), aimed(red))
	assert.ErrorIs(t, err, ErrNotTracking)
}

func TestSession_TickStrongMatchActivatesOnce(t *testing.T) {
	act := &fakeActivator{}
	sink := &recordingSink{}
	s := newTestSession(t, act, sink)
	ctx := context.Background()
	t0 := time.UnixMilli(10_000)

	for i := 0; i < 5; i++ {
		u, err := s.Tick(ctx, t0.Add(time.Duration(i)*time.Second), aimed(red))
		require.NoError(t, err)
		require.NotNil(t, u.Result)
		assert.True(t, u.Fresh)
		assert.Equal(t, signature.TierStrong, u.Result.Tier)
		assert.True(t, u.ARActive)
	}

	activated, _ := act.counts()
	assert.Equal(t, 1, activated, "AR must be triggered exactly once")
	assert.Len(t, sink.all(), 5)
}

func TestSession_ActivationFailureAllowsRetry(t *testing.T) {
	act := &fakeActivator{fail: errors.New("immersive-ar not supported")}
	s := newTestSession(t, act, nil)
	ctx := context.Background()
	t0 := time.UnixMilli(10_000)

	u, err := s.Tick(ctx, t0, aimed(red))
	require.NoError(t, err)
	assert.False(t, u.ARActive)
	assert.False(t, s.Status().ARActive)

	_, err = s.Tick(ctx, t0.Add(time.Second), aimed(red))
	require.NoError(t, err)

	activated, _ := act.counts()
	assert.Equal(t, 2, activated)
}

func TestSession_ARSessionEndedRearms(t *testing.T) {
	act := &fakeActivator{}
	s := newTestSession(t, act, nil)
	ctx := context.Background()
	t0 := time.UnixMilli(10_000)

	_, err := s.Tick(ctx, t0, aimed(red))
	require.NoError(t, err)
	s.ARSessionEnded()
	_, err = s.Tick(ctx, t0.Add(time.Second), aimed(red))
	require.NoError(t, err)

	activated, _ := act.counts()
	assert.Equal(t, 2, activated)
}

func TestSession_RateLimitedTickRetainsResult(t *testing.T) {
	s := newTestSession(t, nil, nil)
	ctx := context.Background()
	t0 := time.UnixMilli(10_000)

	first, err := s.Tick(ctx, t0, aimed(red))
	require.NoError(t, err)
	require.True(t, first.Fresh)

	second, err := s.Tick(ctx, t0.Add(500*time.Millisecond), aimed(cyan))
	require.NoError(t, err)
	assert.False(t, second.Fresh)
	assert.Same(t, first.Result, second.Result)

	third, err := s.Tick(ctx, t0.Add(time.Second), aimed(cyan))
	require.NoError(t, err)
	assert.True(t, third.Fresh)
	assert.False(t, third.Result.Matched)
	assert.Equal(t, signature.TierNone, third.Result.Tier)
}

func TestSession_ReselectReplacesReferenceAndResult(t *testing.T) {
	s := newTestSession(t, nil, nil)
	ctx := context.Background()
	t0 := time.UnixMilli(10_000)

	first, err := s.Tick(ctx, t0, aimed(red))
	require.NoError(t, err)
	oldRef := s.Status().Reference

	// Re-select an orange target 100ms later; the next tick must compare
	// against it right away instead of reusing the red result.
	newRef, err := s.Select(createFrame(selection, orange), selection)
	require.NoError(t, err)
	assert.NotEqual(t, oldRef.ID, newRef.ID)
	assert.Nil(t, s.Status().LastResult)

	u, err := s.Tick(ctx, t0.Add(100*time.Millisecond), aimed(orange))
	require.NoError(t, err)
	assert.True(t, u.Fresh)
	assert.NotSame(t, first.Result, u.Result)
	assert.Equal(t, newRef.ID, u.Result.ReferenceID)
	assert.Equal(t, signature.TierStrong, u.Result.Tier)
}

func TestSession_OutOfBoundsTickRejected(t *testing.T) {
	sink := &recordingSink{}
	s := newTestSession(t, nil, sink)

	tiny := &signature.PixelBuffer{Width: 8, Height: 8, Pix: make([]byte, 8*8*4)}
	u, err := s.Tick(context.Background(), time.UnixMilli(10_000), tiny)
	assert.ErrorIs(t, err, detection.ErrOutOfBounds)
	assert.Nil(t, u.Result)

	updates := sink.all()
	require.Len(t, updates, 1)
	assert.ErrorIs(t, updates[0].Err, detection.ErrOutOfBounds)
}

func TestSession_StopReleasesAndHalts(t *testing.T) {
	act := &fakeActivator{}
	s := newTestSession(t, act, nil)
	ctx := context.Background()

	_, err := s.Tick(ctx, time.UnixMilli(10_000), aimed(red))
	require.NoError(t, err)
	require.True(t, s.Status().ARActive)

	require.NoError(t, s.Stop())
	_, released := act.counts()
	assert.Equal(t, 1, released)

	st := s.Status()
	assert.False(t, st.Tracking)
	assert.False(t, st.ARActive)
	assert.Nil(t, st.LastResult)
	assert.NotNil(t, st.Reference, "stopping keeps the selected reference")

	_, err = s.Tick(ctx, time.UnixMilli(20_000), aimed(red))
	assert.ErrorIs(t, err, ErrNotTracking)

	// A second stop has nothing to release
	require.NoError(t, s.Stop())
	_, released = act.counts()
	assert.Equal(t, 1, released)
}

// gatedActivator blocks in Activate until the test lets it finish
type gatedActivator struct {
	fakeActivator
	entered chan struct{}
	proceed chan struct{}
}

func (a *gatedActivator) Activate(ctx context.Context, trigger *detection.Result) error {
	a.entered <- struct{}{}
	<-a.proceed
	return a.fakeActivator.Activate(ctx, trigger)
}

func TestSession_StopDuringActivationReleasesAfterwards(t *testing.T) {
	act := &gatedActivator{entered: make(chan struct{}, 2), proceed: make(chan struct{})}
	s := newTestSession(t, act, nil)

	done := make(chan Update)
	go func() {
		u, _ := s.Tick(context.Background(), time.UnixMilli(10_000), aimed(red))
		done <- u
	}()

	<-act.entered
	require.NoError(t, s.Stop())
	_, released := act.counts()
	assert.Equal(t, 0, released, "release must wait for the activation in flight")

	close(act.proceed)
	u := <-done
	assert.False(t, u.ARActive)

	activated, released := act.counts()
	assert.Equal(t, 1, activated)
	assert.Equal(t, 1, released, "AR started after stop must be released")
	assert.False(t, s.Status().ARActive)

	// Restarting rearms the trigger
	require.NoError(t, s.Start())
	u, err := s.Tick(context.Background(), time.UnixMilli(20_000), aimed(red))
	require.NoError(t, err)
	assert.True(t, u.ARActive)
}

// sliceSource replays frames and then reports io.EOF
type sliceSource struct {
	frames []*signature.PixelBuffer
}

func (s *sliceSource) NextFrame(ctx context.Context) (*signature.PixelBuffer, error) {
	if len(s.frames) == 0 {
		return nil, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

// stepClock advances by step on every call
func stepClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

func TestDriver_RunsUntilSourceExhausted(t *testing.T) {
	act := &fakeActivator{}
	sink := &recordingSink{}
	s := newTestSession(t, act, sink)

	frames := []*signature.PixelBuffer{aimed(cyan), aimed(cyan), aimed(red), aimed(red), aimed(red)}
	d := &Driver{
		Session:  s,
		Source:   &sliceSource{frames: frames},
		Interval: time.Millisecond,
		Now:      stepClock(time.UnixMilli(0), 500*time.Millisecond),
	}

	require.NoError(t, d.Run(context.Background()))

	updates := sink.all()
	require.Len(t, updates, 5)

	// Ticks at 0, 500, 1000, 1500, 2000ms: comparisons run at 0, 1000, 2000
	fresh := []bool{true, false, true, false, true}
	for i, u := range updates {
		assert.Equal(t, fresh[i], u.Fresh, "tick %d", i)
	}
	assert.False(t, updates[0].Result.Matched)
	assert.False(t, updates[1].Result.Matched, "retained result from the cyan frame")
	assert.Equal(t, signature.TierStrong, updates[2].Result.Tier)

	activated, released := act.counts()
	assert.Equal(t, 1, activated)
	assert.Equal(t, 1, released, "driver exit stops the session")
	assert.False(t, s.Status().Tracking)
}

// endlessSource returns the same frame forever
type endlessSource struct{ frame *signature.PixelBuffer }

func (e endlessSource) NextFrame(ctx context.Context) (*signature.PixelBuffer, error) {
	return e.frame, nil
}

func TestDriver_StopsOnCancel(t *testing.T) {
	s := newTestSession(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	d := &Driver{Session: s, Source: endlessSource{aimed(red)}, Interval: time.Millisecond}
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop after cancel")
	}
	assert.False(t, s.Status().Tracking)
}

func TestDriver_StopsWhenSessionStopped(t *testing.T) {
	s := newTestSession(t, nil, nil)
	d := &Driver{
		Session:  s,
		Source:   endlessSource{aimed(red)},
		Interval: time.Millisecond,
	}
	require.NoError(t, s.Stop())

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("driver kept ticking a stopped session")
	}
}
