// Package server exposes the HTTP surface: snapshot list and lookup
// endpoints, the WebSocket attach point, and a health report.
package server
