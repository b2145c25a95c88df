// Package device wraps an eye-tracking capability provider behind a
// Session that owns the provider's session handle.
//
// Provider is the contract the vendor runtime (package varjo) and its
// stand-ins (packages sim and replay) implement. Session turns provider
// results into typed outcomes:
//
//   - Open fails with ErrSessionUnavailable when the runtime is unreachable.
//   - InitGaze fails with ErrGazeInitFailed.
//   - Poll returns ErrNoData when nothing newer than the previous frame is
//     ready. Callers retry on the next cycle.
//   - Close is idempotent.
//
// Poll only ever delivers strictly increasing frame numbers, so the
// published frame counter never goes backwards even if the provider
// repeats or reorders frames.
package device
