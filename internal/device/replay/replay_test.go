package replay

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzor/gazeshm/internal/device"
	"github.com/mrzor/gazeshm/internal/device/devicetest"
	"github.com/mrzor/gazeshm/internal/frame"
)

func snapshots(first, last int64) []frame.Snapshot {
	var out []frame.Snapshot
	for n := first; n <= last; n++ {
		out = append(out, devicetest.Snapshot(n))
	}
	return out
}

func writeFixture(t *testing.T, compress bool, snaps []frame.Snapshot) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.cbor")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteRecording(f, compress, snaps))
	require.NoError(t, f.Close())
	return path
}

func drain(p *Provider, h device.Handle, limit int) []frame.Snapshot {
	var out []frame.Snapshot
	for range limit {
		var s frame.Snapshot
		if !p.GazeData(h, &s.Gaze, &s.Eyes) {
			break
		}
		out = append(out, s)
	}
	return out
}

func TestRecording_RoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, WriteRecording(&buf, compress, snapshots(1, 10)))
		assert.Equal(t, compress, bytes.HasPrefix(buf.Bytes(), zstdMagic))

		got, err := ReadRecording(&buf)
		require.NoError(t, err)
		assert.Equal(t, snapshots(1, 10), got, "compress=%v", compress)
	}
}

func TestReadRecording_Corrupt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecording(&buf, false, snapshots(1, 2)))
	truncated := buf.Bytes()[:buf.Len()-3]

	_, err := ReadRecording(bytes.NewReader(truncated))
	assert.Error(t, err)

	_, err = ReadRecording(bytes.NewReader(append(append([]byte{}, zstdMagic...), 0xff, 0xff)))
	assert.Error(t, err)
}

func TestProvider_PlaysOnce(t *testing.T) {
	path := writeFixture(t, true, snapshots(1, 5))
	p := New(path)

	h, err := p.SessionInit()
	require.NoError(t, err)
	assert.True(t, p.IsGazeAllowed(h))
	require.NoError(t, p.GazeInit(h))

	got := drain(p, h, 100)
	assert.Equal(t, snapshots(1, 5), got)

	var s frame.Snapshot
	assert.False(t, p.GazeData(h, &s.Gaze, &s.Eyes), "end of file reports no data")

	p.SessionShutdown(h)
	assert.False(t, p.GazeData(h, &s.Gaze, &s.Eyes))
}

func TestProvider_LoopKeepsFramesIncreasing(t *testing.T) {
	path := writeFixture(t, false, snapshots(10, 12))
	p := New(path, WithLoop(true))

	h, err := p.SessionInit()
	require.NoError(t, err)

	got := drain(p, h, 9)
	require.Len(t, got, 9)
	for i, s := range got {
		assert.Equal(t, int64(10+i), s.FrameNumber())
		assert.True(t, s.Consistent())
		if i > 0 {
			assert.Greater(t, s.Gaze.CaptureTime, got[i-1].Gaze.CaptureTime)
		}
	}
}

func TestProvider_Realtime(t *testing.T) {
	path := writeFixture(t, false, snapshots(1, 3))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := New(path, WithRealtime(true), WithClock(func() time.Time { return now }))

	h, err := p.SessionInit()
	require.NoError(t, err)

	var s frame.Snapshot
	require.True(t, p.GazeData(h, &s.Gaze, &s.Eyes))
	assert.Equal(t, int64(1), s.FrameNumber())

	// devicetest snapshots are 5ms apart.
	assert.False(t, p.GazeData(h, &s.Gaze, &s.Eyes))
	now = now.Add(4 * time.Millisecond)
	assert.False(t, p.GazeData(h, &s.Gaze, &s.Eyes))
	now = now.Add(time.Millisecond)
	require.True(t, p.GazeData(h, &s.Gaze, &s.Eyes))
	assert.Equal(t, int64(2), s.FrameNumber())
}

func TestProvider_SessionInitFailures(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.cbor")).SessionInit()
	assert.Error(t, err)

	_, err = New(writeFixture(t, false, nil)).SessionInit()
	assert.ErrorIs(t, err, ErrEmptyRecording)

	// Through a Session the failure is a session-unavailable error.
	_, err = device.Open(New(writeFixture(t, true, nil)))
	assert.ErrorIs(t, err, device.ErrSessionUnavailable)
	assert.ErrorIs(t, err, ErrEmptyRecording)

	p := New(writeFixture(t, false, snapshots(1, 1)), WithGazeAllowed(false))
	h, err := p.SessionInit()
	require.NoError(t, err)
	assert.False(t, p.IsGazeAllowed(h))
}
