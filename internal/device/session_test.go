package device_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzor/gazeshm/internal/device"
	"github.com/mrzor/gazeshm/internal/device/devicetest"
	"github.com/mrzor/gazeshm/internal/frame"
)

func TestOpen_SessionUnavailable(t *testing.T) {
	cause := errors.New("runtime not running")
	p := &devicetest.Provider{SessionErr: cause}

	s, err := device.Open(p)
	require.Error(t, err)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, device.ErrSessionUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 0, p.OpenSessions())
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	p := &devicetest.Provider{}
	s, err := device.Open(p)
	require.NoError(t, err)
	require.Equal(t, 1, p.OpenSessions())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second Close must be a no-op")
	assert.Equal(t, 1, p.Calls("SessionShutdown"))
	assert.Equal(t, 0, p.OpenSessions())

	var never *device.Session
	assert.NoError(t, never.Close(), "Close on a never-opened session must be a no-op")
}

func TestSession_CallsAfterClose(t *testing.T) {
	p := &devicetest.Provider{Steps: devicetest.Frames(1, 1)}
	s, err := device.Open(p)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.GazeAllowed()
	assert.ErrorIs(t, err, device.ErrSessionClosed)
	assert.ErrorIs(t, s.InitGaze(), device.ErrSessionClosed)
	assert.ErrorIs(t, s.SyncProperties(), device.ErrSessionClosed)
	assert.ErrorIs(t, s.RequestCalibration(), device.ErrSessionClosed)
	_, err = s.CalibrationQuality()
	assert.ErrorIs(t, err, device.ErrSessionClosed)

	var snap frame.Snapshot
	assert.ErrorIs(t, s.Poll(&snap), device.ErrSessionClosed)
	assert.Equal(t, 0, p.Calls("GazeData"))
}

func TestSession_GazeLifecycle(t *testing.T) {
	initErr := errors.New("no eye tracker")

	tests := []struct {
		name        string
		provider    *devicetest.Provider
		wantAllowed bool
		wantInitErr bool
	}{
		{"allowed", &devicetest.Provider{}, true, false},
		{"denied", &devicetest.Provider{GazeDenied: true}, false, false},
		{"init fails", &devicetest.Provider{GazeInitErr: initErr}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := device.Open(tt.provider)
			require.NoError(t, err)
			defer s.Close()

			allowed, err := s.GazeAllowed()
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllowed, allowed)

			err = s.InitGaze()
			if tt.wantInitErr {
				assert.ErrorIs(t, err, device.ErrGazeInitFailed)
				assert.ErrorIs(t, err, initErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSession_CalibrationQuality(t *testing.T) {
	p := &devicetest.Provider{Quality: device.CalibrationQuality{Left: device.QualityHigh, Right: device.QualityLow}}
	s, err := device.Open(p)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SyncProperties())
	q, err := s.CalibrationQuality()
	require.NoError(t, err)
	assert.Equal(t, device.QualityHigh, q.Left)
	assert.Equal(t, device.QualityLow, q.Right)
	assert.True(t, q.Below(device.QualityMedium))
	assert.False(t, q.Below(device.QualityLow))

	require.NoError(t, s.RequestCalibration())
	assert.Equal(t, 1, p.Calls("RequestCalibration"))
}

func TestSession_PollNoDataLeavesDestinationUntouched(t *testing.T) {
	p := &devicetest.Provider{Steps: []devicetest.Step{
		devicetest.Frame(3),
		devicetest.NoData(),
	}}
	s, err := device.Open(p)
	require.NoError(t, err)
	defer s.Close()

	var snap frame.Snapshot
	require.NoError(t, s.Poll(&snap))
	assert.Equal(t, int64(3), snap.FrameNumber())

	before := snap
	assert.ErrorIs(t, s.Poll(&snap), device.ErrNoData)
	assert.Equal(t, before, snap)
}

func TestSession_PollDeliversOnlyIncreasingFrames(t *testing.T) {
	p := &devicetest.Provider{Steps: []devicetest.Step{
		devicetest.Frame(1),
		devicetest.Frame(2),
		devicetest.Frame(2), // repeated
		devicetest.Frame(1), // regressed
		devicetest.Frame(4),
	}}
	s, err := device.Open(p)
	require.NoError(t, err)
	defer s.Close()

	var got []int64
	var snap frame.Snapshot
	for range p.Steps {
		err := s.Poll(&snap)
		if errors.Is(err, device.ErrNoData) {
			continue
		}
		require.NoError(t, err)
		got = append(got, snap.FrameNumber())
	}

	assert.Equal(t, []int64{1, 2, 4}, got)
}

func TestSession_PollRejectsEarlierCaptureTime(t *testing.T) {
	first := devicetest.Snapshot(1).Gaze.CaptureTime
	p := &devicetest.Provider{Steps: []devicetest.Step{
		devicetest.Frame(1),
		devicetest.FrameAt(2, first-1000), // newer frame, older capture
		devicetest.FrameAt(3, first),      // same capture time is fine
		devicetest.Frame(4),
	}}
	s, err := device.Open(p)
	require.NoError(t, err)
	defer s.Close()

	var frames, captures []int64
	var snap frame.Snapshot
	for range p.Steps {
		err := s.Poll(&snap)
		if errors.Is(err, device.ErrNoData) {
			continue
		}
		require.NoError(t, err)
		frames = append(frames, snap.FrameNumber())
		captures = append(captures, snap.Gaze.CaptureTime)
	}

	assert.Equal(t, []int64{1, 3, 4}, frames)
	assert.Equal(t, []int64{first, first, devicetest.Snapshot(4).Gaze.CaptureTime}, captures)
}

func TestParseEyeCalibrationQuality(t *testing.T) {
	tests := []struct {
		in      string
		want    device.EyeCalibrationQuality
		wantErr bool
	}{
		{"low", device.QualityLow, false},
		{" Medium ", device.QualityMedium, false},
		{"HIGH", device.QualityHigh, false},
		{"invalid", device.QualityInvalid, false},
		{"superb", device.QualityInvalid, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := device.ParseEyeCalibrationQuality(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) device.EyeCalibrationQuality {
	t.Helper()
	q, err := device.ParseEyeCalibrationQuality(s)
	require.NoError(t, err)
	return q
}
