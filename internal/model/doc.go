// Package model defines shared data types used across ordercast.
//
// Conventions:
//   - Timestamps: int64 microseconds since Unix epoch
//   - Order identifiers: strings, matched case-insensitively after
//     NormalizeID
//   - Payload fields: raw JSON, carried through from upstream unmodified
package model
