// Package deps locates the external programs reawwise runs, such as the
// render command a manifest names.
package deps

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Requirement names an external program.
type Requirement struct {
	Name    string
	Command string
	// Dir anchors a relative Command such as "scripts/render.sh". Bare
	// names are looked up on PATH.
	Dir string
}

// Status reports whether a Requirement resolved. Command holds the resolved
// path when Available.
type Status struct {
	Name      string
	Command   string
	Available bool
	Detail    string
}

// Resolve returns the executable path for command.
func Resolve(command, dir string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", fmt.Errorf("command not configured")
	}
	lookup := command
	if dir != "" && !filepath.IsAbs(command) && strings.ContainsRune(command, filepath.Separator) {
		lookup = filepath.Join(dir, command)
	}
	resolved, err := exec.LookPath(lookup)
	if err != nil {
		return "", fmt.Errorf("binary %q not found", command)
	}
	return resolved, nil
}

// CheckBinaries resolves every requirement.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{Name: req.Name, Command: strings.TrimSpace(req.Command)}
		if resolved, err := Resolve(req.Command, req.Dir); err != nil {
			status.Detail = err.Error()
		} else {
			status.Command = resolved
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}
