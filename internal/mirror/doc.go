// Package mirror persists adopted snapshots to Redis so a restarted
// watcher can serve lookups before its first upstream poll completes.
package mirror
