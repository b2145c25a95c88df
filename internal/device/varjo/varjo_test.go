package varjo

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"

	"github.com/mrzor/gazeshm/internal/device"
	"github.com/mrzor/gazeshm/internal/frame"
)

func TestQualityFromInt(t *testing.T) {
	tests := []struct {
		in   int64
		want device.EyeCalibrationQuality
	}{
		{0, device.QualityInvalid},
		{1, device.QualityLow},
		{2, device.QualityMedium},
		{3, device.QualityHigh},
		{4, device.QualityInvalid},
		{-1, device.QualityInvalid},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, qualityFromInt(tt.in), "input %d", tt.in)
	}
}

func TestNew_Library(t *testing.T) {
	assert.Equal(t, "VarjoLib.dll", New().library)
	assert.Equal(t, `C:\varjo\VarjoLib.dll`, New(WithLibrary(`C:\varjo\VarjoLib.dll`)).library)
}

func TestSessionInit_Unsupported(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("runtime may be installed")
	}
	h, err := New().SessionInit()
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorContains(t, err, "VarjoLib.dll")
	assert.Zero(t, h)

	_, err = device.Open(New())
	assert.ErrorIs(t, err, device.ErrSessionUnavailable)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestNativeStructLayout(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("the runtime ships for 64-bit only")
	}
	assert.Equal(t, uintptr(nativeGazeSize), unsafe.Sizeof(frame.GazeSample{}))
	assert.Equal(t, uintptr(nativeEyesSize), unsafe.Sizeof(frame.EyeMeasurements{}))

	var g frame.GazeSample
	assert.Equal(t, uintptr(160), unsafe.Offsetof(g.CaptureTime))
	assert.Equal(t, uintptr(192), unsafe.Offsetof(g.FrameNumber))
	var e frame.EyeMeasurements
	assert.Equal(t, uintptr(16), unsafe.Offsetof(e.InterPupillaryDistance))
	assert.Equal(t, uintptr(48), unsafe.Offsetof(e.RightEyeOpenness))
}
