// Package poller implements the change-detection poll loop.
//
// The poller:
//   - Fetches the full dataset from the source adapter on a fixed cadence
//   - Feeds the result to the snapshot store and compares signatures
//   - Hands changed snapshots to the change handler (the broadcast hub)
//   - Enforces single-flight: a tick that arrives while a cycle is still
//     running is skipped, never run concurrently
//
// Upstream failures are contained within the cycle; the previous snapshot
// stays authoritative and the loop always reschedules.
package poller
