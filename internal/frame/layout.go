package frame

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Size is the number of bytes of one encoded Snapshot.
const Size = 272

// Field offsets within an encoded Snapshot.
const (
	offLeftEye        = 0
	offRightEye       = 48
	offGaze           = 96
	offFocusDistance  = 144
	offStability      = 152
	offGazeCapture    = 160
	offLeftStatus     = 168
	offRightStatus    = 176
	offStatus         = 184
	offGazeFrame      = 192
	offLeftPupilSize  = 200
	offRightPupilSize = 208

	offEyesFrame        = 216
	offEyesCapture      = 224
	offIPD              = 232
	offLeftPupilIris    = 236
	offRightPupilIris   = 240
	offLeftPupilDiam    = 244
	offRightPupilDiam   = 248
	offLeftIrisDiam     = 252
	offRightIrisDiam    = 256
	offLeftOpenness     = 260
	offRightOpenness    = 264
	offReserved         = 268
	reservedSize        = Size - offReserved
	rayEncodedSize      = 48
	gazeSampleSize      = offEyesFrame
	eyeMeasurementsSize = Size - offEyesFrame
)

var le = binary.LittleEndian

// Field describes one primitive field of the encoded layout.
type Field struct {
	Name   string `yaml:"name" json:"name"`
	Offset int    `yaml:"offset" json:"offset"`
	Size   int    `yaml:"size" json:"size"`
	Type   string `yaml:"type" json:"type"`
}

// Layout returns the encoded layout, one entry per primitive field, in
// offset order.
func Layout() []Field {
	fields := make([]Field, 0, 64)
	ray := func(name string, base int) {
		for i, part := range []string{"origin", "forward"} {
			for j, axis := range []string{"x", "y", "z"} {
				fields = append(fields, Field{
					Name:   fmt.Sprintf("gaze.%s.%s.%s", name, part, axis),
					Offset: base + i*24 + j*8,
					Size:   8,
					Type:   "float64",
				})
			}
		}
	}
	ray("left_eye", offLeftEye)
	ray("right_eye", offRightEye)
	ray("gaze", offGaze)

	fields = append(fields,
		Field{"gaze.focus_distance", offFocusDistance, 8, "float64"},
		Field{"gaze.stability", offStability, 8, "float64"},
		Field{"gaze.capture_time", offGazeCapture, 8, "int64"},
		Field{"gaze.left_status", offLeftStatus, 8, "int64"},
		Field{"gaze.right_status", offRightStatus, 8, "int64"},
		Field{"gaze.status", offStatus, 8, "int64"},
		Field{"gaze.frame_number", offGazeFrame, 8, "int64"},
		Field{"gaze.left_pupil_size", offLeftPupilSize, 8, "float64"},
		Field{"gaze.right_pupil_size", offRightPupilSize, 8, "float64"},
		Field{"eyes.frame_number", offEyesFrame, 8, "int64"},
		Field{"eyes.capture_time", offEyesCapture, 8, "int64"},
		Field{"eyes.ipd_mm", offIPD, 4, "float32"},
		Field{"eyes.left_pupil_iris_ratio", offLeftPupilIris, 4, "float32"},
		Field{"eyes.right_pupil_iris_ratio", offRightPupilIris, 4, "float32"},
		Field{"eyes.left_pupil_diameter_mm", offLeftPupilDiam, 4, "float32"},
		Field{"eyes.right_pupil_diameter_mm", offRightPupilDiam, 4, "float32"},
		Field{"eyes.left_iris_diameter_mm", offLeftIrisDiam, 4, "float32"},
		Field{"eyes.right_iris_diameter_mm", offRightIrisDiam, 4, "float32"},
		Field{"eyes.left_eye_openness", offLeftOpenness, 4, "float32"},
		Field{"eyes.right_eye_openness", offRightOpenness, 4, "float32"},
		Field{"reserved", offReserved, reservedSize, "bytes"},
	)
	return fields
}

// MarshalTo encodes s into the first Size bytes of b. It does not
// allocate, so it can write straight into a shared mapping.
func (s *Snapshot) MarshalTo(b []byte) error {
	if len(b) < Size {
		return fmt.Errorf("frame: buffer too small: %d bytes, need %d", len(b), Size)
	}
	b = b[:Size]

	g := &s.Gaze
	putRay(b[offLeftEye:], &g.LeftEye)
	putRay(b[offRightEye:], &g.RightEye)
	putRay(b[offGaze:], &g.Gaze)
	putFloat64(b[offFocusDistance:], g.FocusDistance)
	putFloat64(b[offStability:], g.Stability)
	putInt64(b[offGazeCapture:], g.CaptureTime)
	putInt64(b[offLeftStatus:], int64(g.LeftStatus))
	putInt64(b[offRightStatus:], int64(g.RightStatus))
	putInt64(b[offStatus:], int64(g.Status))
	putInt64(b[offGazeFrame:], g.FrameNumber)
	putFloat64(b[offLeftPupilSize:], g.LeftPupilSize)
	putFloat64(b[offRightPupilSize:], g.RightPupilSize)

	e := &s.Eyes
	putInt64(b[offEyesFrame:], e.FrameNumber)
	putInt64(b[offEyesCapture:], e.CaptureTime)
	putFloat32(b[offIPD:], e.InterPupillaryDistance)
	putFloat32(b[offLeftPupilIris:], e.LeftPupilIrisDiameterRatio)
	putFloat32(b[offRightPupilIris:], e.RightPupilIrisDiameterRatio)
	putFloat32(b[offLeftPupilDiam:], e.LeftPupilDiameter)
	putFloat32(b[offRightPupilDiam:], e.RightPupilDiameter)
	putFloat32(b[offLeftIrisDiam:], e.LeftIrisDiameter)
	putFloat32(b[offRightIrisDiam:], e.RightIrisDiameter)
	putFloat32(b[offLeftOpenness:], e.LeftEyeOpenness)
	putFloat32(b[offRightOpenness:], e.RightEyeOpenness)

	clear(b[offReserved:Size])
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *Snapshot) MarshalBinary() ([]byte, error) {
	b := make([]byte, Size)
	if err := s.MarshalTo(b); err != nil {
		return nil, err
	}
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Only the first
// Size bytes of b are read; the reserved tail is ignored.
func (s *Snapshot) UnmarshalBinary(b []byte) error {
	if len(b) < Size {
		return fmt.Errorf("frame: short buffer: %d bytes, need %d", len(b), Size)
	}

	g := &s.Gaze
	getRay(b[offLeftEye:], &g.LeftEye)
	getRay(b[offRightEye:], &g.RightEye)
	getRay(b[offGaze:], &g.Gaze)
	g.FocusDistance = getFloat64(b[offFocusDistance:])
	g.Stability = getFloat64(b[offStability:])
	g.CaptureTime = getInt64(b[offGazeCapture:])
	g.LeftStatus = EyeStatus(getInt64(b[offLeftStatus:]))
	g.RightStatus = EyeStatus(getInt64(b[offRightStatus:]))
	g.Status = GazeStatus(getInt64(b[offStatus:]))
	g.FrameNumber = getInt64(b[offGazeFrame:])
	g.LeftPupilSize = getFloat64(b[offLeftPupilSize:])
	g.RightPupilSize = getFloat64(b[offRightPupilSize:])

	e := &s.Eyes
	e.FrameNumber = getInt64(b[offEyesFrame:])
	e.CaptureTime = getInt64(b[offEyesCapture:])
	e.InterPupillaryDistance = getFloat32(b[offIPD:])
	e.LeftPupilIrisDiameterRatio = getFloat32(b[offLeftPupilIris:])
	e.RightPupilIrisDiameterRatio = getFloat32(b[offRightPupilIris:])
	e.LeftPupilDiameter = getFloat32(b[offLeftPupilDiam:])
	e.RightPupilDiameter = getFloat32(b[offRightPupilDiam:])
	e.LeftIrisDiameter = getFloat32(b[offLeftIrisDiam:])
	e.RightIrisDiameter = getFloat32(b[offRightIrisDiam:])
	e.LeftEyeOpenness = getFloat32(b[offLeftOpenness:])
	e.RightEyeOpenness = getFloat32(b[offRightOpenness:])
	return nil
}

func putRay(b []byte, r *Ray) {
	putFloat64(b[0:], r.Origin.X)
	putFloat64(b[8:], r.Origin.Y)
	putFloat64(b[16:], r.Origin.Z)
	putFloat64(b[24:], r.Forward.X)
	putFloat64(b[32:], r.Forward.Y)
	putFloat64(b[40:], r.Forward.Z)
}

func getRay(b []byte, r *Ray) {
	r.Origin.X = getFloat64(b[0:])
	r.Origin.Y = getFloat64(b[8:])
	r.Origin.Z = getFloat64(b[16:])
	r.Forward.X = getFloat64(b[24:])
	r.Forward.Y = getFloat64(b[32:])
	r.Forward.Z = getFloat64(b[40:])
}

func putFloat64(b []byte, v float64) { le.PutUint64(b, math.Float64bits(v)) }
func putFloat32(b []byte, v float32) { le.PutUint32(b, math.Float32bits(v)) }

//nolint:gosec // two's complement reinterpretation, not a range conversion
func putInt64(b []byte, v int64) { le.PutUint64(b, uint64(v)) }

func getFloat64(b []byte) float64 { return math.Float64frombits(le.Uint64(b)) }
func getFloat32(b []byte) float32 { return math.Float32frombits(le.Uint32(b)) }

//nolint:gosec // two's complement reinterpretation, not a range conversion
func getInt64(b []byte) int64 { return int64(le.Uint64(b)) }
