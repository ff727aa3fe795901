// Package importer runs a transfer against the authoring tool: one
// ak.wwise.core.audio.import call bracketed by an undo group, followed by
// property template pastes and a project explorer selection.
//
// Execute reconciles the objects the import reports against a snapshot of
// the destination lineage taken beforehand. Remote failures after the import
// call are collected on the Summary rather than aborting the run.
package importer
