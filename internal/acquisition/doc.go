// Package acquisition runs the producer lifecycle: open a device
// session, check gaze permission, activate gaze, create the shared region
// and publish every new frame into it until the context is canceled.
//
// States:
//
//	Uninitialized -> SessionActive -> GazePermissionDenied
//	                               -> GazeReady -> Publishing -> Stopped
//
// Any fatal error moves the loop to Failed. Whatever was acquired is
// released on every path, region before session.
package acquisition
