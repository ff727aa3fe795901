// Package ipc exposes a running watch process over JSON-RPC on a Unix
// socket.
//
// Only one process may hold the state database, so while `reawwise watch`
// runs, the one-shot preview, transfer and status commands dial the socket
// instead of opening their own session. The service answers from the watch
// process's live session controller.
package ipc
