// Package hub implements the Broadcast Hub component.
//
// The hub:
//   - Tracks connected WebSocket subscribers
//   - Pushes the current snapshot to a subscriber on connect
//   - Pushes adopted snapshots to every subscriber on change, exactly
//     once per subscriber per change
//   - Answers per-subscriber filter requests through the query facade
//
// A slow subscriber is disconnected rather than allowed to stall the
// poller or its peers; on reconnect it receives the fresh snapshot.
package hub
