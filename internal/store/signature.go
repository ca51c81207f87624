package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/ordercast/ordercast/internal/model"
)

// Signature computes the change-detection digest for an ordered sequence
// of orders: SHA-256 over each (order_id, timestamp) pair in sequence
// order, with explicit separators so adjacent fields cannot collide.
//
// Payload fields are deliberately excluded: a payload edit that does not
// bump the order's timestamp is not a change for broadcast purposes.
func Signature(orders []model.Order) string {
	h := sha256.New()
	var ts [8]byte
	for _, o := range orders {
		h.Write([]byte(o.OrderID))
		h.Write([]byte{0})
		binary.BigEndian.PutUint64(ts[:], uint64(o.Timestamp))
		h.Write(ts[:])
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
