package frame

import "fmt"

// Vector is a 3D vector in the headset coordinate system.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Ray is a gaze ray with an origin and a forward direction.
type Ray struct {
	Origin  Vector `json:"origin"`
	Forward Vector `json:"forward"`
}

// EyeStatus is the per-eye tracking status.
type EyeStatus int64

// Per-eye tracking status values, as reported by the device.
const (
	EyeInvalid     EyeStatus = 0
	EyeVisible     EyeStatus = 1
	EyeCompensated EyeStatus = 2
	EyeTracked     EyeStatus = 3
)

func (s EyeStatus) String() string {
	switch s {
	case EyeInvalid:
		return "invalid"
	case EyeVisible:
		return "visible"
	case EyeCompensated:
		return "compensated"
	case EyeTracked:
		return "tracked"
	default:
		return fmt.Sprintf("EyeStatus(%d)", int64(s))
	}
}

// GazeStatus is the overall tracking status.
type GazeStatus int64

// Overall tracking status values.
const (
	GazeInvalid GazeStatus = 0
	GazeAdjust  GazeStatus = 1
	GazeValid   GazeStatus = 2
)

func (s GazeStatus) String() string {
	switch s {
	case GazeInvalid:
		return "invalid"
	case GazeAdjust:
		return "adjust"
	case GazeValid:
		return "valid"
	default:
		return fmt.Sprintf("GazeStatus(%d)", int64(s))
	}
}

// GazeSample is one timestamped gaze measurement.
type GazeSample struct {
	LeftEye        Ray        `json:"left_eye"`
	RightEye       Ray        `json:"right_eye"`
	Gaze           Ray        `json:"gaze"`
	FocusDistance  float64    `json:"focus_distance"`
	Stability      float64    `json:"stability"`
	CaptureTime    int64      `json:"capture_time"`
	LeftStatus     EyeStatus  `json:"left_status"`
	RightStatus    EyeStatus  `json:"right_status"`
	Status         GazeStatus `json:"status"`
	FrameNumber    int64      `json:"frame_number"`
	LeftPupilSize  float64    `json:"left_pupil_size"`
	RightPupilSize float64    `json:"right_pupil_size"`
}

// EyeMeasurements holds the per-frame biometrics paired with a GazeSample.
// Diameters and distances are in millimeters; openness is in [0,1].
type EyeMeasurements struct {
	FrameNumber                 int64   `json:"frame_number"`
	CaptureTime                 int64   `json:"capture_time"`
	InterPupillaryDistance      float32 `json:"ipd_mm"`
	LeftPupilIrisDiameterRatio  float32 `json:"left_pupil_iris_ratio"`
	RightPupilIrisDiameterRatio float32 `json:"right_pupil_iris_ratio"`
	LeftPupilDiameter           float32 `json:"left_pupil_diameter_mm"`
	RightPupilDiameter          float32 `json:"right_pupil_diameter_mm"`
	LeftIrisDiameter            float32 `json:"left_iris_diameter_mm"`
	RightIrisDiameter           float32 `json:"right_iris_diameter_mm"`
	LeftEyeOpenness             float32 `json:"left_eye_openness"`
	RightEyeOpenness            float32 `json:"right_eye_openness"`
}

// Snapshot is the unit of publication: one GazeSample and the
// EyeMeasurements captured with it.
type Snapshot struct {
	Gaze GazeSample      `json:"gaze"`
	Eyes EyeMeasurements `json:"eyes"`
}

// FrameNumber returns the gaze frame number of the snapshot.
func (s *Snapshot) FrameNumber() int64 {
	return s.Gaze.FrameNumber
}

// Consistent reports whether both halves of the snapshot carry the same
// frame number and capture time. A decoded snapshot that fails this check
// was most likely read while the producer was overwriting it.
func (s *Snapshot) Consistent() bool {
	return s.Gaze.FrameNumber == s.Eyes.FrameNumber && s.Gaze.CaptureTime == s.Eyes.CaptureTime
}
