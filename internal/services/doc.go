// Package services defines shared utilities consumed by the engine packages
// and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp session names, job kinds, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that let callers decide
//     between local retry (Recoverable) and surfacing a failure.
//
// Use these helpers when wiring new remote-facing logic so error handling and
// observability stay uniform across the transport, preview, and import paths.
package services
