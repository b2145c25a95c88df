package sim

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzor/gazeshm/internal/device"
	"github.com/mrzor/gazeshm/internal/frame"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func poll(p *Provider, h device.Handle) (frame.Snapshot, bool) {
	var s frame.Snapshot
	ok := p.GazeData(h, &s.Gaze, &s.Eyes)
	return s, ok
}

func TestGazeData_FramesFollowClock(t *testing.T) {
	clock := newClock()
	p := New(WithClock(clock.now))

	h, err := p.SessionInit()
	require.NoError(t, err)

	s, ok := poll(p, h)
	require.True(t, ok)
	assert.Equal(t, int64(1), s.FrameNumber())
	assert.Equal(t, int64(0), s.Gaze.CaptureTime)

	_, ok = poll(p, h)
	assert.False(t, ok, "no new frame before the next deadline")

	clock.advance(4 * time.Millisecond)
	_, ok = poll(p, h)
	assert.False(t, ok)

	clock.advance(time.Millisecond)
	s, ok = poll(p, h)
	require.True(t, ok)
	assert.Equal(t, int64(2), s.FrameNumber())
	assert.Equal(t, (5 * time.Millisecond).Nanoseconds(), s.Gaze.CaptureTime)

	// Missed deadlines are skipped.
	clock.advance(20 * time.Millisecond)
	s, ok = poll(p, h)
	require.True(t, ok)
	assert.Equal(t, int64(6), s.FrameNumber())
	assert.True(t, s.Consistent())
}

func TestGazeData_Rate(t *testing.T) {
	clock := newClock()
	p := New(WithClock(clock.now), WithRate(90))

	h, err := p.SessionInit()
	require.NoError(t, err)

	count := 0
	for range 1000 {
		if _, ok := poll(p, h); ok {
			count++
		}
		clock.advance(time.Millisecond)
	}
	assert.InDelta(t, 90, count, 1)
}

func TestGazeData_Deterministic(t *testing.T) {
	run := func() []frame.Snapshot {
		clock := newClock()
		p := New(WithClock(clock.now), WithSeed(42))
		h, err := p.SessionInit()
		require.NoError(t, err)

		var out []frame.Snapshot
		for range 2000 {
			if s, ok := poll(p, h); ok {
				out = append(out, s)
			}
			clock.advance(5 * time.Millisecond)
		}
		return out
	}

	assert.Equal(t, run(), run())
}

func TestGazeData_ValuesInRange(t *testing.T) {
	clock := newClock()
	p := New(WithClock(clock.now))
	h, err := p.SessionInit()
	require.NoError(t, err)

	blinked := false
	for range 3000 {
		s, ok := poll(p, h)
		clock.advance(5 * time.Millisecond)
		if !ok {
			continue
		}
		assert.GreaterOrEqual(t, s.Eyes.LeftEyeOpenness, float32(0))
		assert.LessOrEqual(t, s.Eyes.LeftEyeOpenness, float32(1))
		assert.Greater(t, s.Gaze.Gaze.Forward.Z, 0.0)
		if s.Gaze.Status == frame.GazeInvalid {
			blinked = true
			assert.Equal(t, frame.EyeInvalid, s.Gaze.LeftStatus)
		}
	}
	assert.True(t, blinked, "15s of frames must include a blink")
}

func TestClockBeforeStart(t *testing.T) {
	clock := newClock()
	p := New(WithClock(clock.now))
	h, err := p.SessionInit()
	require.NoError(t, err)

	clock.advance(-time.Second)
	_, ok := poll(p, h)
	assert.False(t, ok)
}

func TestOptions(t *testing.T) {
	sessionErr := errors.New("headset unplugged")
	_, err := New(WithSessionError(sessionErr)).SessionInit()
	assert.ErrorIs(t, err, sessionErr)

	p := New(WithGazeAllowed(false))
	h, err := p.SessionInit()
	require.NoError(t, err)
	assert.False(t, p.IsGazeAllowed(h))

	initErr := errors.New("tracker busy")
	p = New(WithGazeInitError(initErr))
	h, err = p.SessionInit()
	require.NoError(t, err)
	assert.ErrorIs(t, p.GazeInit(h), initErr)
}

func TestRequestCalibration(t *testing.T) {
	p := New(WithCalibrationQuality(device.CalibrationQuality{Left: device.QualityLow, Right: device.QualityMedium}))
	h, err := p.SessionInit()
	require.NoError(t, err)

	assert.True(t, p.CalibrationQuality(h).Below(device.QualityHigh))
	p.RequestCalibration(h)
	assert.Equal(t, 1, p.Calibrations())
	assert.False(t, p.CalibrationQuality(h).Below(device.QualityHigh))
}
