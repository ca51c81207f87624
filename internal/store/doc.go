// Package store implements the Snapshot Store component.
//
// The Snapshot Store:
//   - Holds the last-known-good orders dataset and its signature
//   - Swaps the whole snapshot atomically; readers never see a
//     half-replaced dataset
//   - Serves point lookups by normalized order id
//
// Writes are owned exclusively by the poller. Everything else reads.
package store
