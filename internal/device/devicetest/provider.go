// Package devicetest provides a scripted device.Provider for tests.
package devicetest

import (
	"sync"

	"github.com/mrzor/gazeshm/internal/device"
	"github.com/mrzor/gazeshm/internal/frame"
)

// Step is one scripted GazeData result.
type Step struct {
	Snapshot frame.Snapshot
	NoData   bool
}

// Frame returns a step delivering a consistent snapshot numbered n.
func Frame(n int64) Step {
	return Step{Snapshot: Snapshot(n)}
}

// FrameAt returns a step delivering frame n stamped with captureTime
// instead of the default capture time for n.
func FrameAt(n, captureTime int64) Step {
	snap := Snapshot(n)
	snap.Gaze.CaptureTime = captureTime
	snap.Eyes.CaptureTime = captureTime
	return Step{Snapshot: snap}
}

// NoData returns a step for which GazeData reports no frame.
func NoData() Step {
	return Step{NoData: true}
}

// Frames returns steps delivering frames first through last.
func Frames(first, last int64) []Step {
	steps := make([]Step, 0, last-first+1)
	for n := first; n <= last; n++ {
		steps = append(steps, Frame(n))
	}
	return steps
}

// Snapshot builds a deterministic snapshot for frame n. Both halves carry
// the same frame number and capture time.
func Snapshot(n int64) frame.Snapshot {
	captureTime := 5_000_000 * n
	f := float64(n)
	return frame.Snapshot{
		Gaze: frame.GazeSample{
			LeftEye:       frame.Ray{Origin: frame.Vector{X: -0.032}, Forward: frame.Vector{X: 0.01 * f, Z: 1}},
			RightEye:      frame.Ray{Origin: frame.Vector{X: 0.032}, Forward: frame.Vector{X: 0.01 * f, Z: 1}},
			Gaze:          frame.Ray{Forward: frame.Vector{X: 0.01 * f, Z: 1}},
			FocusDistance: 1 + 0.1*f,
			Stability:     0.9,
			CaptureTime:   captureTime,
			LeftStatus:    frame.EyeTracked,
			RightStatus:   frame.EyeTracked,
			Status:        frame.GazeValid,
			FrameNumber:   n,
		},
		Eyes: frame.EyeMeasurements{
			FrameNumber:            n,
			CaptureTime:            captureTime,
			InterPupillaryDistance: 63,
			LeftPupilDiameter:      4,
			RightPupilDiameter:     4,
			LeftEyeOpenness:        1,
			RightEyeOpenness:       1,
		},
	}
}

// Provider is a scripted device.Provider. Configure the exported fields
// before use; it records every call it receives.
type Provider struct {
	SessionErr   error
	GazeDenied   bool
	GazeInitErr  error
	Quality      device.CalibrationQuality
	Steps        []Step
	BeforeStep   func(index int)
	OnExhausted  func()
	mu           sync.Mutex
	calls        map[string]int
	step         int
	exhausted    bool
	nextHandle   device.Handle
	openSessions int
}

func (p *Provider) record(name string) {
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[name]++
}

// Calls returns how many times the named Provider method was called.
func (p *Provider) Calls(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

// OpenSessions returns the number of sessions initialized and not yet
// shut down.
func (p *Provider) OpenSessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.openSessions
}

// SessionInit implements device.Provider.
func (p *Provider) SessionInit() (device.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("SessionInit")
	if p.SessionErr != nil {
		return 0, p.SessionErr
	}
	p.nextHandle++
	p.openSessions++
	return p.nextHandle, nil
}

// SessionShutdown implements device.Provider.
func (p *Provider) SessionShutdown(device.Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("SessionShutdown")
	p.openSessions--
}

// IsGazeAllowed implements device.Provider.
func (p *Provider) IsGazeAllowed(device.Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("IsGazeAllowed")
	return !p.GazeDenied
}

// GazeInit implements device.Provider.
func (p *Provider) GazeInit(device.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("GazeInit")
	return p.GazeInitErr
}

// SyncProperties implements device.Provider.
func (p *Provider) SyncProperties(device.Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("SyncProperties")
}

// CalibrationQuality implements device.Provider.
func (p *Provider) CalibrationQuality(device.Handle) device.CalibrationQuality {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("CalibrationQuality")
	return p.Quality
}

// RequestCalibration implements device.Provider.
func (p *Provider) RequestCalibration(device.Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("RequestCalibration")
}

// GazeData implements device.Provider. It plays Steps in order; once they
// run out it reports no data and calls OnExhausted once.
func (p *Provider) GazeData(_ device.Handle, gaze *frame.GazeSample, eyes *frame.EyeMeasurements) bool {
	p.mu.Lock()
	p.record("GazeData")
	if p.step >= len(p.Steps) {
		fire := !p.exhausted && p.OnExhausted != nil
		p.exhausted = true
		p.mu.Unlock()
		if fire {
			p.OnExhausted()
		}
		return false
	}
	index := p.step
	step := p.Steps[index]
	p.step++
	hook := p.BeforeStep
	p.mu.Unlock()

	if hook != nil {
		hook(index)
	}
	if step.NoData {
		return false
	}
	*gaze = step.Snapshot.Gaze
	*eyes = step.Snapshot.Eyes
	return true
}
