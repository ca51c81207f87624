package source

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ordercast/ordercast/internal/model"
)

// Reserved record keys consumed during normalization. Everything else is
// carried through as payload.
const (
	keyOrderID   = "order_id"
	keyIsActive  = "is_active"
	keyTimestamp = "timestamp"
)

// parseOrders decodes an upstream response body into normalized orders.
// The body must be a JSON array of order-shaped objects.
func parseOrders(data []byte) ([]model.Order, error) {
	var records []map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	orders := make([]model.Order, 0, len(records))
	for i, rec := range records {
		o, err := normalizeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// normalizeRecord maps one upstream record onto model.Order, tolerating
// the shape drift between spreadsheet rows and table rows.
func normalizeRecord(rec map[string]json.RawMessage) (model.Order, error) {
	raw, ok := rec[keyOrderID]
	if !ok {
		return model.Order{}, fmt.Errorf("missing %s", keyOrderID)
	}

	id, err := coerceID(raw)
	if err != nil {
		return model.Order{}, fmt.Errorf("%s: %w", keyOrderID, err)
	}
	if id == "" {
		return model.Order{}, fmt.Errorf("empty %s", keyOrderID)
	}

	// Absent is_active means active: one source variant filters
	// server-side and omits the column entirely.
	active := true
	if raw, ok := rec[keyIsActive]; ok {
		active, err = coerceBool(raw)
		if err != nil {
			return model.Order{}, fmt.Errorf("%s: %w", keyIsActive, err)
		}
	}

	var ts int64
	if raw, ok := rec[keyTimestamp]; ok {
		ts, err = coerceTimestamp(raw)
		if err != nil {
			return model.Order{}, fmt.Errorf("%s: %w", keyTimestamp, err)
		}
	}

	payload := make(map[string]json.RawMessage, len(rec))
	for k, v := range rec {
		switch k {
		case keyOrderID, keyIsActive, keyTimestamp:
		default:
			payload[k] = v
		}
	}
	if len(payload) == 0 {
		payload = nil
	}

	return model.Order{
		OrderID:   id,
		IsActive:  active,
		Timestamp: ts,
		Payload:   payload,
	}, nil
}

// coerceID accepts a JSON string or number identifier.
func coerceID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("not a string or number: %s", raw)
}

// coerceBool accepts JSON booleans plus the spreadsheet spellings
// "TRUE"/"FALSE" and 0/1.
func coerceBool(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "1":
			return true, nil
		case "false", "no", "0", "":
			return false, nil
		}
		return false, fmt.Errorf("unrecognized boolean %q", s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		v, err := n.Int64()
		if err != nil {
			return false, err
		}
		return v != 0, nil
	}
	return false, fmt.Errorf("not a boolean: %s", raw)
}

// coerceTimestamp accepts an integer timestamp (seconds, milliseconds, or
// microseconds since epoch, detected by magnitude) or an RFC 3339 string.
// Always returns microseconds.
func coerceTimestamp(raw json.RawMessage) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		v := int64(f)
		switch {
		case v >= 1e14: // already microseconds
			return v, nil
		case v >= 1e11: // milliseconds
			return v * 1_000, nil
		default: // seconds
			return v * 1_000_000, nil
		}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return 0, nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			// Spreadsheet exports frequently drop the zone.
			t, err = time.Parse("2006-01-02T15:04:05", s)
			if err != nil {
				return 0, fmt.Errorf("unparseable timestamp %q", s)
			}
		}
		return t.UnixMicro(), nil
	}
	return 0, fmt.Errorf("not a number or string: %s", raw)
}
