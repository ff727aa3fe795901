// Package session coordinates one workstation session with the authoring
// tool: it owns the transfer settings, keeps the preview current and runs
// transfers.
//
// A Controller's settings and preview are owned by its loop goroutine.
// Public methods post closures to the loop and wait for them, watcher
// notifications arrive from the event bus and background job results come
// back on a channel. Nothing else mutates controller state.
//
// The preview is recomputed when a trigger fires: a settings change, a
// connection transition, a project or object notification, or a session
// change detected by polling the workstation adapter. Only the newest
// preview job's result is applied; superseded jobs are cancelled and their
// results dropped. Transfers are single flight.
package session
