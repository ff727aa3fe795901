// Package notifications reports transfer results to an ntfy topic.
//
// NewService returns a no-op Service when no topic is configured, so callers
// never branch on whether notifications are enabled. The daemon forwards
// import events from the bus; the CLI uses TestNotification to check the
// endpoint.
package notifications
