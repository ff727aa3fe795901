// Package history records one row per import run in a SQLite database so past
// transfers can be listed and inspected from the CLI.
package history
