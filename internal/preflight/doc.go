// Package preflight provides readiness checks for the filesystem paths and
// the WAAPI endpoint that reawwise depends on.
//
// These checks run in two contexts:
//   - The session controller calls ForTransfer before an import. If any
//     check fails, the transfer is refused before anything is rendered.
//   - The CLI "reawwise status" command uses RunAll and the individual
//     check functions to display readiness.
package preflight
