// Package waapi wraps the Wwise Authoring API on top of a WAMP session.
//
// Client.Call returns keyword results or a *CallError carrying the procedure,
// the remote message and error URI, and the raw payload. The typed helpers in
// this package (object queries, project info, import, paste properties, undo
// groups and UI selection) accept the Caller interface so callers can swap in
// an in-process fake. ExecuteWithRetry is for idempotent reads only.
package waapi
