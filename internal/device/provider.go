package device

import (
	"fmt"
	"strings"

	"github.com/mrzor/gazeshm/internal/frame"
)

// Handle is an opaque session handle issued by a Provider. Zero is never
// a valid handle.
type Handle uintptr

// Provider is the eye-tracking capability provider: the vendor runtime
// or a stand-in for it. Implementations need not be safe for concurrent
// use; Session serializes every call.
type Provider interface {
	// SessionInit connects to the device runtime and returns a new handle.
	SessionInit() (Handle, error)
	// SessionShutdown releases the handle.
	SessionShutdown(h Handle)
	// IsGazeAllowed reports whether the user has granted gaze tracking.
	IsGazeAllowed(h Handle) bool
	// GazeInit activates the gaze subsystem.
	GazeInit(h Handle) error
	// SyncProperties refreshes cached device properties.
	SyncProperties(h Handle)
	// CalibrationQuality reads per-eye calibration quality. Valid only
	// after SyncProperties.
	CalibrationQuality(h Handle) CalibrationQuality
	// RequestCalibration starts the device-side calibration flow and
	// returns without waiting for it.
	RequestCalibration(h Handle)
	// GazeData fills gaze and eyes with the latest frame. It returns
	// false when no valid frame is available.
	GazeData(h Handle, gaze *frame.GazeSample, eyes *frame.EyeMeasurements) bool
}

// EyeCalibrationQuality is the calibration quality of one eye.
type EyeCalibrationQuality int

// Calibration quality levels, as reported by the device.
const (
	QualityInvalid EyeCalibrationQuality = 0
	QualityLow     EyeCalibrationQuality = 1
	QualityMedium  EyeCalibrationQuality = 2
	QualityHigh    EyeCalibrationQuality = 3
)

func (q EyeCalibrationQuality) String() string {
	switch q {
	case QualityInvalid:
		return "invalid"
	case QualityLow:
		return "low"
	case QualityMedium:
		return "medium"
	case QualityHigh:
		return "high"
	default:
		return fmt.Sprintf("EyeCalibrationQuality(%d)", int(q))
	}
}

// ParseEyeCalibrationQuality parses a quality level name, case-insensitively.
func ParseEyeCalibrationQuality(s string) (EyeCalibrationQuality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "invalid":
		return QualityInvalid, nil
	case "low":
		return QualityLow, nil
	case "medium":
		return QualityMedium, nil
	case "high":
		return QualityHigh, nil
	default:
		return QualityInvalid, fmt.Errorf("unknown calibration quality %q (want invalid, low, medium or high)", s)
	}
}

// CalibrationQuality holds the calibration quality of both eyes.
type CalibrationQuality struct {
	Left  EyeCalibrationQuality
	Right EyeCalibrationQuality
}

// Below reports whether either eye is calibrated worse than min.
func (c CalibrationQuality) Below(minimum EyeCalibrationQuality) bool {
	return c.Left < minimum || c.Right < minimum
}
