// Package source implements the Source Adapter component.
//
// Providers fetch the full current orders dataset from an upstream owner:
//   - HTTPProvider: a spreadsheet-backed JSON endpoint (Apps Script style)
//   - PostgresProvider: a relational orders table
//   - MultiProvider: fan-in concatenation over several providers
//
// Providers normalize heterogeneous upstream shapes into model.Order and
// never touch the snapshot store; failures surface as UpstreamError with
// a timeout/unavailable/malformed kind.
package source
