// Package varjo binds device.Provider to the Varjo native runtime.
//
// On Windows the runtime is VarjoLib.dll, loaded lazily on the first
// SessionInit. The native GazeData and EyeMeasurements structs share
// their memory layout with frame.GazeSample and frame.EyeMeasurements,
// so the runtime writes straight into the caller's values. On every
// other platform SessionInit fails with ErrUnsupported.
package varjo
