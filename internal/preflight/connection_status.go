package preflight

import (
	"fmt"

	"reawwise/internal/connection"
)

// ConnectionStatus summarizes a watcher snapshot for status displays.
func ConnectionStatus(snap connection.Snapshot) Result {
	const name = "Connection"

	switch snap.State {
	case connection.Connected:
		detail := fmt.Sprintf("%s (Wwise %s)", snap.Address, snap.Info.Version)
		if snap.Project.Name != "" {
			detail += fmt.Sprintf(", project %s", snap.Project.Name)
		}
		return Result{Name: name, Passed: true, Detail: detail}
	case connection.Connecting:
		return Result{Name: name, Detail: fmt.Sprintf("connecting to %s", snap.Address)}
	}
	detail := fmt.Sprintf("disconnected from %s", snap.Address)
	if snap.Failures > 0 {
		detail += fmt.Sprintf(" after %d attempts, retry in %s", snap.Failures, snap.RetryIn)
	}
	if snap.LastError != "" {
		detail += fmt.Sprintf(" (%s)", snap.LastError)
	}
	return Result{Name: name, Detail: detail}
}
