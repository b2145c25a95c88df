// Package frame defines the Frame Snapshot published to shared memory and
// its fixed binary layout.
//
// A Snapshot is one GazeSample followed by one EyeMeasurements record.
// The encoding is explicit little-endian with fixed offsets and does not
// depend on Go struct layout:
//
//	offset  size  field
//	     0    48  gaze.left_eye      (origin xyz, forward xyz; float64)
//	    48    48  gaze.right_eye
//	    96    48  gaze.gaze          (combined, normalized)
//	   144     8  gaze.focus_distance     float64
//	   152     8  gaze.stability          float64
//	   160     8  gaze.capture_time       int64 (ns, device time)
//	   168     8  gaze.left_status        int64 (EyeStatus)
//	   176     8  gaze.right_status       int64 (EyeStatus)
//	   184     8  gaze.status             int64 (GazeStatus)
//	   192     8  gaze.frame_number       int64
//	   200     8  gaze.left_pupil_size    float64 (deprecated by vendor)
//	   208     8  gaze.right_pupil_size   float64 (deprecated by vendor)
//	   216     8  eyes.frame_number       int64
//	   224     8  eyes.capture_time       int64
//	   232    36  eyes.*                  9 x float32
//	   268     4  reserved (zero)
//
// Size is 272 bytes. The reserved tail keeps the record 8-byte aligned,
// which is the size consumers of the original Windows producer map.
//
// The payload carries no version or checksum. Consumers built against a
// different layout cannot detect the mismatch.
package frame
