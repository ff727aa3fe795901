// Package testsupport provides shared fixtures for reawwise tests: a config
// rooted in temp directories, file helpers, an in-memory Wwise project that
// implements waapi.Caller, and a WAMP router that serves any Caller over an
// httptest WebSocket.
package testsupport
