//go:build !windows

package varjo

import (
	"fmt"

	"github.com/mrzor/gazeshm/internal/device"
	"github.com/mrzor/gazeshm/internal/frame"
)

// SessionInit always fails off Windows.
func (p *Provider) SessionInit() (device.Handle, error) {
	return 0, fmt.Errorf("%s: %w", p.library, ErrUnsupported)
}

func (p *Provider) SessionShutdown(device.Handle)    {}
func (p *Provider) IsGazeAllowed(device.Handle) bool { return false }
func (p *Provider) GazeInit(device.Handle) error     { return ErrUnsupported }
func (p *Provider) SyncProperties(device.Handle)     {}
func (p *Provider) RequestCalibration(device.Handle) {}

func (p *Provider) CalibrationQuality(device.Handle) device.CalibrationQuality {
	return device.CalibrationQuality{}
}

func (p *Provider) GazeData(device.Handle, *frame.GazeSample, *frame.EyeMeasurements) bool {
	return false
}
