// Package main hosts the reawwise CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, assembles a daemon for
// commands that talk to the authoring tool, and renders previews, import
// summaries and history as tables. Commands that only touch local state
// (history, presets, saved session state) open the stores directly and
// never dial WAAPI.
package main
