package device

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mrzor/gazeshm/internal/frame"
)

var (
	// ErrSessionUnavailable means the device runtime could not be reached.
	ErrSessionUnavailable = errors.New("eye tracking session unavailable")
	// ErrGazeInitFailed means the gaze subsystem could not be activated.
	ErrGazeInitFailed = errors.New("gaze initialization failed")
	// ErrNoData means no new frame is ready yet. It is not a failure.
	ErrNoData = errors.New("no new gaze data")
	// ErrSessionClosed is returned by calls made after Close.
	ErrSessionClosed = errors.New("session closed")
)

// Session owns one provider session handle. All provider calls go
// through its mutex, so a Session may be shared but the provider never
// sees concurrent calls.
type Session struct {
	mu        sync.Mutex
	provider  Provider
	handle    Handle
	logger    *slog.Logger
	scratch     frame.Snapshot
	lastFrame   int64
	lastCapture int64
	delivered   bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// Open initializes a provider session. Failures wrap ErrSessionUnavailable.
func Open(provider Provider, opts ...Option) (*Session, error) {
	s := &Session{
		provider: provider,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	h, err := provider.SessionInit()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	}
	if h == 0 {
		return nil, fmt.Errorf("%w: provider returned a null session", ErrSessionUnavailable)
	}
	s.handle = h
	s.logger.Debug("session opened")
	return s, nil
}

// GazeAllowed reports whether the user has allowed gaze tracking.
func (s *Session) GazeAllowed() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == 0 {
		return false, ErrSessionClosed
	}
	return s.provider.IsGazeAllowed(s.handle), nil
}

// InitGaze activates the gaze subsystem. Failures wrap ErrGazeInitFailed.
func (s *Session) InitGaze() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == 0 {
		return ErrSessionClosed
	}
	if err := s.provider.GazeInit(s.handle); err != nil {
		return fmt.Errorf("%w: %w", ErrGazeInitFailed, err)
	}
	return nil
}

// SyncProperties refreshes the provider's cached device properties.
func (s *Session) SyncProperties() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == 0 {
		return ErrSessionClosed
	}
	s.provider.SyncProperties(s.handle)
	return nil
}

// CalibrationQuality returns the per-eye calibration quality. Call
// SyncProperties first for a fresh value.
func (s *Session) CalibrationQuality() (CalibrationQuality, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == 0 {
		return CalibrationQuality{}, ErrSessionClosed
	}
	return s.provider.CalibrationQuality(s.handle), nil
}

// RequestCalibration asks the device to run its calibration flow. The
// outcome is not observable here.
func (s *Session) RequestCalibration() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == 0 {
		return ErrSessionClosed
	}
	s.provider.RequestCalibration(s.handle)
	return nil
}

// Poll copies the next frame into dst. It returns ErrNoData, leaving dst
// untouched, when the provider has nothing newer than the last frame
// delivered by this session. A frame is newer when its frame number is
// greater and its capture time is not earlier.
func (s *Session) Poll(dst *frame.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == 0 {
		return ErrSessionClosed
	}

	if !s.provider.GazeData(s.handle, &s.scratch.Gaze, &s.scratch.Eyes) {
		return ErrNoData
	}

	n := s.scratch.Gaze.FrameNumber
	if s.delivered && n <= s.lastFrame {
		if n < s.lastFrame {
			s.logger.Debug("discarding out-of-order frame", "frame", n, "last", s.lastFrame)
		}
		return ErrNoData
	}
	if at := s.scratch.Gaze.CaptureTime; s.delivered && at < s.lastCapture {
		s.logger.Debug("discarding frame captured out of order",
			"frame", n, "capture_time", at, "last_capture_time", s.lastCapture)
		return ErrNoData
	}

	*dst = s.scratch
	s.lastFrame = n
	s.lastCapture = s.scratch.Gaze.CaptureTime
	s.delivered = true
	return nil
}

// Close shuts the session down. It is safe to call more than once and on
// a nil Session.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == 0 {
		return nil
	}
	s.provider.SessionShutdown(s.handle)
	s.handle = 0
	s.logger.Debug("session closed")
	return nil
}
