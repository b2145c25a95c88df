package varjo

import (
	"errors"

	"github.com/mrzor/gazeshm/internal/device"
)

// ErrUnsupported is returned by SessionInit where the runtime cannot run.
var ErrUnsupported = errors.New("varjo runtime is only available on windows")

// Property keys read after SyncProperties.
const (
	propGazeCalibrated          = 0xA001
	propGazeCalibrationQualityL = 0xA004
	propGazeCalibrationQualityR = 0xA005
)

// Sizes of the runtime's varjo_Gaze and varjo_EyeMeasurements structs
// on 64-bit Windows. GazeData writes straight into the frame types.
const (
	nativeGazeSize = 216
	nativeEyesSize = 56
)

// Provider talks to the Varjo runtime.
type Provider struct {
	library string
}

var _ device.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithLibrary overrides the runtime library name or path.
func WithLibrary(path string) Option {
	return func(p *Provider) {
		p.library = path
	}
}

// New returns a provider for the installed Varjo runtime.
func New(opts ...Option) *Provider {
	p := &Provider{library: "VarjoLib.dll"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func qualityFromInt(v int64) device.EyeCalibrationQuality {
	q := device.EyeCalibrationQuality(v)
	if q < device.QualityInvalid || q > device.QualityHigh {
		return device.QualityInvalid
	}
	return q
}
