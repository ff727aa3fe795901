// Package daemon assembles a running reawwise session and owns its
// lifecycle.
//
// It opens the state and history stores, starts the WAAPI connection
// watcher and the session controller, and tears them down in reverse order.
// Long-running processes take a flock-based lock so a single watcher runs
// per state directory; one-shot CLI commands share the same wiring without
// the lock.
package daemon
