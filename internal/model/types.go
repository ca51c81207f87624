package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Order is the unit of data synchronized from upstream.
type Order struct {
	// OrderID is the stable external identifier, unique among active orders.
	OrderID string `json:"order_id"`

	// IsActive marks whether the order appears in the default snapshot view.
	IsActive bool `json:"is_active"`

	// Timestamp is the ordering/version marker (µs since epoch). It drives
	// both the default sort (descending) and the snapshot signature.
	Timestamp int64 `json:"timestamp"`

	// Payload holds the remaining upstream attributes (customer, items,
	// instructions). Opaque to the engine.
	Payload map[string]json.RawMessage `json:"payload,omitempty"`
}

// Snapshot is the complete ordered dataset at a point in time.
type Snapshot struct {
	// Orders is sorted timestamp-descending.
	Orders []Order `json:"orders"`

	// Signature is the digest over (order_id, timestamp) pairs in sequence
	// order. Two snapshots are equal for broadcast purposes iff their
	// signatures match.
	Signature string `json:"signature"`

	// FetchedAt is when the snapshot was adopted.
	FetchedAt time.Time `json:"fetched_at"`
}

// NormalizeID canonicalizes an order identifier for comparison. Upstream
// variants disagree on identifier casing and padding, so matching is
// whitespace- and case-insensitive.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
