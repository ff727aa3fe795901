// Package statestore persists per-session blobs in a bbolt database. Each
// workstation session gets its own bucket so state saved for one session is
// never read back by another.
package statestore
