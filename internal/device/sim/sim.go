// Package sim is a synthetic eye tracker for running without hardware.
//
// Frames are produced at a fixed rate against an injectable clock. The
// gaze ray sweeps a Lissajous figure and both eyes blink every few
// seconds. Output is fully determined by the seed and the clock readings.
package sim

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/mrzor/gazeshm/internal/device"
	"github.com/mrzor/gazeshm/internal/frame"
)

// DefaultRate is the frame rate of the Varjo gaze output at its default
// setting.
const DefaultRate = 200

const (
	ipdMM          = 63.5
	eyeOffset      = ipdMM / 2 / 1000
	blinkDuration  = 150 * time.Millisecond
	blinkMinPeriod = 3 * time.Second
	blinkJitter    = 2 * time.Second
)

// Provider is a synthetic device.Provider.
type Provider struct {
	rate         float64
	now          func() time.Time
	seed         uint64
	gazeAllowed  bool
	sessionErr   error
	gazeInitErr  error
	quality      device.CalibrationQuality
	calibrations int

	handle     device.Handle
	period     time.Duration
	start      time.Time
	last       int64
	rng        *rand.Rand
	nextBlink  time.Duration
	blinkUntil time.Duration
}

var _ device.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithRate sets the frame rate in Hz. Non-positive values are ignored.
func WithRate(hz float64) Option {
	return func(p *Provider) {
		if hz > 0 {
			p.rate = hz
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// WithSeed seeds the blink schedule.
func WithSeed(seed uint64) Option {
	return func(p *Provider) {
		p.seed = seed
	}
}

// WithGazeAllowed sets the answer to IsGazeAllowed.
func WithGazeAllowed(allowed bool) Option {
	return func(p *Provider) {
		p.gazeAllowed = allowed
	}
}

// WithSessionError makes SessionInit fail with err.
func WithSessionError(err error) Option {
	return func(p *Provider) {
		p.sessionErr = err
	}
}

// WithGazeInitError makes GazeInit fail with err.
func WithGazeInitError(err error) Option {
	return func(p *Provider) {
		p.gazeInitErr = err
	}
}

// WithCalibrationQuality sets the reported calibration quality. A
// RequestCalibration raises both eyes to high.
func WithCalibrationQuality(q device.CalibrationQuality) Option {
	return func(p *Provider) {
		p.quality = q
	}
}

// New returns a provider with gaze allowed, high calibration quality and
// DefaultRate.
func New(opts ...Option) *Provider {
	p := &Provider{
		rate:        DefaultRate,
		now:         time.Now,
		seed:        1,
		gazeAllowed: true,
		quality:     device.CalibrationQuality{Left: device.QualityHigh, Right: device.QualityHigh},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Calibrations returns how many calibrations were requested.
func (p *Provider) Calibrations() int {
	return p.calibrations
}

func (p *Provider) SessionInit() (device.Handle, error) {
	if p.sessionErr != nil {
		return 0, p.sessionErr
	}
	p.handle++
	p.period = max(time.Duration(float64(time.Second)/p.rate), 1)
	p.start = p.now()
	p.last = 0
	p.rng = rand.New(rand.NewPCG(p.seed, p.seed^0x9e3779b97f4a7c15)) //nolint:gosec // Not security sensitive
	p.nextBlink = p.blinkGap()
	p.blinkUntil = 0
	return p.handle, nil
}

func (p *Provider) SessionShutdown(device.Handle) {}

func (p *Provider) IsGazeAllowed(device.Handle) bool { return p.gazeAllowed }

func (p *Provider) GazeInit(device.Handle) error { return p.gazeInitErr }

func (p *Provider) SyncProperties(device.Handle) {}

func (p *Provider) CalibrationQuality(device.Handle) device.CalibrationQuality { return p.quality }

func (p *Provider) RequestCalibration(device.Handle) {
	p.calibrations++
	p.quality = device.CalibrationQuality{Left: device.QualityHigh, Right: device.QualityHigh}
}

// GazeData reports the most recent frame whose deadline has passed.
// Frame 1 is due at session start; frames missed between polls are
// skipped, as on the real device.
func (p *Provider) GazeData(_ device.Handle, gaze *frame.GazeSample, eyes *frame.EyeMeasurements) bool {
	elapsed := p.now().Sub(p.start)
	if elapsed < 0 {
		return false
	}
	due := int64(elapsed/p.period) + 1
	if due <= p.last {
		return false
	}
	p.last = due

	at := time.Duration(due-1) * p.period
	p.render(due, at, gaze, eyes)
	return true
}

func (p *Provider) blinkGap() time.Duration {
	return blinkMinPeriod + time.Duration(p.rng.Int64N(int64(blinkJitter)))
}

// openness advances the blink schedule to t and returns eyelid openness.
func (p *Provider) openness(t time.Duration) float64 {
	for t >= p.nextBlink+blinkDuration {
		p.nextBlink += blinkDuration + p.blinkGap()
	}
	if t < p.nextBlink {
		return 1
	}
	// Close then reopen over blinkDuration.
	phase := float64(t-p.nextBlink) / float64(blinkDuration)
	return math.Abs(1 - 2*phase)
}

func (p *Provider) render(n int64, at time.Duration, gaze *frame.GazeSample, eyes *frame.EyeMeasurements) {
	t := at.Seconds()
	open := p.openness(at)

	fx := 0.35 * math.Sin(2*math.Pi*0.23*t)
	fy := 0.2 * math.Sin(2*math.Pi*0.37*t+math.Pi/2)
	forward := normalize(frame.Vector{X: fx, Y: fy, Z: 1})

	eyeStatus := frame.EyeTracked
	status := frame.GazeValid
	switch {
	case open < 0.2:
		eyeStatus = frame.EyeInvalid
		status = frame.GazeInvalid
	case open < 0.6:
		eyeStatus = frame.EyeVisible
		status = frame.GazeAdjust
	}

	focus := 0.75 + 0.5*(1+math.Sin(2*math.Pi*0.1*t))
	pupil := 3.5 + 0.5*math.Sin(2*math.Pi*0.05*t)
	iris := 11.8
	captureTime := at.Nanoseconds()

	*gaze = frame.GazeSample{
		LeftEye:        frame.Ray{Origin: frame.Vector{X: -eyeOffset}, Forward: forward},
		RightEye:       frame.Ray{Origin: frame.Vector{X: eyeOffset}, Forward: forward},
		Gaze:           frame.Ray{Forward: forward},
		FocusDistance:  focus,
		Stability:      open,
		CaptureTime:    captureTime,
		LeftStatus:     eyeStatus,
		RightStatus:    eyeStatus,
		Status:         status,
		FrameNumber:    n,
		LeftPupilSize:  pupil / iris,
		RightPupilSize: pupil / iris,
	}
	*eyes = frame.EyeMeasurements{
		FrameNumber:                 n,
		CaptureTime:                 captureTime,
		InterPupillaryDistance:      ipdMM,
		LeftPupilIrisDiameterRatio:  float32(pupil / iris),
		RightPupilIrisDiameterRatio: float32(pupil / iris),
		LeftPupilDiameter:           float32(pupil),
		RightPupilDiameter:          float32(pupil),
		LeftIrisDiameter:            float32(iris),
		RightIrisDiameter:           float32(iris),
		LeftEyeOpenness:             float32(open),
		RightEyeOpenness:            float32(open),
	}
}

func normalize(v frame.Vector) frame.Vector {
	l := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	return frame.Vector{X: v.X / l, Y: v.Y / l, Z: v.Z / l}
}
