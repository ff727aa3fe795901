// Package scripting exposes WAAPI argument and result trees to scripts as
// opaque integer handles.
//
// An Arena owns every value. Maps and arrays own the handles attached to
// them, so releasing a container releases its subtree. Handles are never
// reused within an arena.
package scripting
