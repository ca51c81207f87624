package hub

import (
	"time"

	"github.com/ordercast/ordercast/internal/model"
)

// Outbound message types.
const (
	typeSnapshot = "snapshot"
	typeOrder    = "order"
	typeError    = "error"
)

// Error codes carried in error envelopes.
const (
	codeNotFound        = "not_found"
	codeInvalidArgument = "invalid_argument"
	codeBadRequest      = "bad_request"
)

// snapshotMsg ships the complete active set. The hub never sends deltas.
type snapshotMsg struct {
	Type      string        `json:"type"`
	Orders    []model.Order `json:"orders"`
	Count     int           `json:"count"`
	Signature string        `json:"signature"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// orderMsg answers a filter request with the single matching record.
type orderMsg struct {
	Type  string      `json:"type"`
	Order model.Order `json:"order"`
}

// errorMsg answers a filter request that missed or was malformed.
type errorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// clientRequest is the inbound frame from a subscriber.
type clientRequest struct {
	Action  string `json:"action"`
	OrderID string `json:"order_id"`
}

func newSnapshotMsg(snap *model.Snapshot) snapshotMsg {
	return snapshotMsg{
		Type:      typeSnapshot,
		Orders:    snap.Orders,
		Count:     len(snap.Orders),
		Signature: snap.Signature,
		FetchedAt: snap.FetchedAt,
	}
}
