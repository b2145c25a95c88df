// Package replay plays a recorded capture back as a device.Provider.
//
// A recording is a CBOR sequence of frame.Snapshot values, optionally
// zstd-compressed. The whole file is decoded at SessionInit.
package replay

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mrzor/gazeshm/internal/device"
	"github.com/mrzor/gazeshm/internal/frame"
)

// ErrEmptyRecording means the recording decoded to zero snapshots.
var ErrEmptyRecording = errors.New("recording has no frames")

// Provider replays a recording.
type Provider struct {
	path        string
	loop        bool
	realtime    bool
	gazeAllowed bool
	now         func() time.Time

	handle    device.Handle
	frames    []frame.Snapshot
	next      int
	lap       int64
	frameSpan int64
	timeSpan  int64
	started   bool
	wallStart time.Time
	baseTime  int64
}

var _ device.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithLoop rewinds to the first snapshot at end of file. Frame numbers
// and capture times of later laps are shifted so they keep increasing.
func WithLoop(loop bool) Option {
	return func(p *Provider) {
		p.loop = loop
	}
}

// WithRealtime paces snapshots by their capture-time deltas instead of
// delivering one per poll.
func WithRealtime(realtime bool) Option {
	return func(p *Provider) {
		p.realtime = realtime
	}
}

// WithClock replaces time.Now for realtime pacing.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// WithGazeAllowed sets the answer to IsGazeAllowed.
func WithGazeAllowed(allowed bool) Option {
	return func(p *Provider) {
		p.gazeAllowed = allowed
	}
}

// New returns a provider that replays the recording at path.
func New(path string, opts ...Option) *Provider {
	p := &Provider{
		path:        path,
		gazeAllowed: true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SessionInit loads and decodes the recording.
func (p *Provider) SessionInit() (device.Handle, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return 0, fmt.Errorf("opening recording: %w", err)
	}
	defer f.Close()

	frames, err := ReadRecording(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", p.path, err)
	}
	if len(frames) == 0 {
		return 0, fmt.Errorf("%s: %w", p.path, ErrEmptyRecording)
	}

	p.frames = frames
	p.next = 0
	p.lap = 0
	p.started = false

	first, last := frames[0].Gaze, frames[len(frames)-1].Gaze
	step := int64(time.Millisecond)
	if n := int64(len(frames)); n > 1 && last.CaptureTime > first.CaptureTime {
		step = (last.CaptureTime - first.CaptureTime) / (n - 1)
	}
	p.frameSpan = max(last.FrameNumber-first.FrameNumber+1, 1)
	p.timeSpan = max(last.CaptureTime-first.CaptureTime+step, 1)

	p.handle++
	return p.handle, nil
}

func (p *Provider) SessionShutdown(device.Handle) {
	p.frames = nil
}

func (p *Provider) IsGazeAllowed(device.Handle) bool { return p.gazeAllowed }

func (p *Provider) GazeInit(device.Handle) error { return nil }

func (p *Provider) SyncProperties(device.Handle) {}

// CalibrationQuality reports high for both eyes; recordings carry no
// calibration data.
func (p *Provider) CalibrationQuality(device.Handle) device.CalibrationQuality {
	return device.CalibrationQuality{Left: device.QualityHigh, Right: device.QualityHigh}
}

func (p *Provider) RequestCalibration(device.Handle) {}

// GazeData delivers the next snapshot, or reports no data at end of file
// and, in realtime mode, before the snapshot is due.
func (p *Provider) GazeData(_ device.Handle, gaze *frame.GazeSample, eyes *frame.EyeMeasurements) bool {
	if len(p.frames) == 0 {
		return false
	}
	if p.next >= len(p.frames) {
		if !p.loop {
			return false
		}
		p.next = 0
		p.lap++
	}

	s := p.frames[p.next]
	frameOffset := p.lap * p.frameSpan
	timeOffset := p.lap * p.timeSpan
	s.Gaze.FrameNumber += frameOffset
	s.Eyes.FrameNumber += frameOffset
	s.Gaze.CaptureTime += timeOffset
	s.Eyes.CaptureTime += timeOffset

	if p.realtime {
		now := p.now()
		if !p.started {
			p.started = true
			p.wallStart = now
			p.baseTime = s.Gaze.CaptureTime
		}
		if now.Sub(p.wallStart) < time.Duration(s.Gaze.CaptureTime-p.baseTime) {
			return false
		}
	}

	p.next++
	*gaze = s.Gaze
	*eyes = s.Eyes
	return true
}
