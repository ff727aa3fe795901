// Package wamp is a minimal WAMP v2 basic-profile client: HELLO/WELCOME,
// CALL/RESULT/ERROR, SUBSCRIBE/EVENT/UNSUBSCRIBE and GOODBYE over a WebSocket
// using either the wamp.2.json or wamp.2.cbor subprotocol.
//
// A single reader goroutine routes replies to waiting requests by request id
// and queues events for an ordered dispatch goroutine, so event handlers may
// issue calls on the same session without deadlocking the reader.
package wamp
