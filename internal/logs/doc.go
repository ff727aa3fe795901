// Package logs reads back the reawwise log file.
//
// Tail returns the last lines of the file or everything written after a byte
// offset, optionally waiting for new output. Filter narrows the result to one
// component, session or minimum level and understands both the console and
// the JSON log formats.
package logs
