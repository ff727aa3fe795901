// Package wwise models Wwise object paths and types.
//
// Paths are backslash-delimited segments, each optionally prefixed with a
// readable type tag such as "<Sound SFX>". All functions are pure string
// operations that return empty or false on malformed input. The package also
// holds the parent/child containment table and the status enums shared by
// the preview and import stages.
package wwise
