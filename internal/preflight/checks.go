package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"reawwise/internal/deps"
	"reawwise/internal/waapi"
	"reawwise/internal/workstation"
)

// CheckWAAPI connects once, reads the tool version and disconnects. It uses
// a 5-second timeout and a single attempt.
func CheckWAAPI(ctx context.Context, opts waapi.Options) Result {
	const name = "WAAPI"

	if strings.TrimSpace(opts.URL) == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := waapi.Connect(checkCtx, opts)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s unreachable (%v)", opts.URL, err)}
	}
	defer client.Close()

	info, err := waapi.GetInfo(checkCtx, client)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("getInfo failed (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Wwise %s (%s)", info.Version, describeCapabilities(info.Capabilities))}
}

func describeCapabilities(c waapi.Capabilities) string {
	var parts []string
	if c.WAQL {
		parts = append(parts, "WAQL")
	}
	if c.UndoGroups {
		parts = append(parts, "undo groups")
	}
	if c.PasteProperties {
		parts = append(parts, "paste properties")
	}
	if len(parts) == 0 {
		return "legacy API"
	}
	return strings.Join(parts, ", ")
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckManifest verifies the render manifest parses and names at least
// one render target.
func CheckManifest(ctx context.Context, path string) Result {
	const name = "Render manifest"

	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	adapter := workstation.NewManifestAdapter(path, nil)
	targets, err := adapter.RenderTargets(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if len(targets) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (no render targets)", path)}
	}
	session, _ := adapter.SessionName(ctx)
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (session %q, %d targets)", path, session, len(targets))}
}

// CheckRenderCommand verifies the manifest's render command is installed.
// A manifest without one passes, since targets are then pre-rendered.
func CheckRenderCommand(ctx context.Context, path string) Result {
	const name = "Render command"

	command, err := workstation.NewManifestAdapter(path, nil).RenderCommand(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if len(command) == 0 {
		return Result{Name: name, Passed: true, Detail: "none (targets are pre-rendered)"}
	}
	status := deps.CheckBinaries([]deps.Requirement{{
		Name:    name,
		Command: command[0],
		Dir:     filepath.Dir(path),
	}})[0]
	if !status.Available {
		return Result{Name: name, Detail: status.Detail}
	}
	return Result{Name: name, Passed: true, Detail: status.Command}
}

// CheckRenderFiles verifies every audio file of a transfer is readable.
func CheckRenderFiles(items []workstation.Item) Result {
	const name = "Rendered files"

	if len(items) == 0 {
		return Result{Name: name, Detail: "no rendered files"}
	}
	var missing []string
	for _, item := range items {
		if err := unix.Access(item.AudioFile, unix.R_OK); err != nil {
			missing = append(missing, item.AudioFile)
		}
	}
	if len(missing) > 0 {
		detail := fmt.Sprintf("%d of %d unreadable: %s", len(missing), len(items), missing[0])
		if len(missing) > 1 {
			detail += fmt.Sprintf(" (+%d more)", len(missing)-1)
		}
		return Result{Name: name, Detail: detail}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d files readable", len(items))}
}
