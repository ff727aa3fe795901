// Package connection owns the WAAPI connection lifecycle.
//
// A Watcher runs one background loop that dials with exponential backoff,
// subscribes to project and object change topics while connected, and pings
// the authoring tool each poll interval. Change notifications only mark state
// stale and publish on the event bus; consumers refetch on their own
// goroutine.
package connection
