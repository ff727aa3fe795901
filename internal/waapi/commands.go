package waapi

import (
	"context"
	"fmt"
)

// PasteProperties copies every property of source onto targets.
func PasteProperties(ctx context.Context, c Caller, source string, targets []string) error {
	list := make([]any, 0, len(targets))
	for _, t := range targets {
		list = append(list, t)
	}
	_, err := c.Call(ctx, ProcPasteProperties, map[string]any{
		"source":    source,
		"targets":   list,
		"pasteMode": "replaceEntire",
	}, nil)
	return err
}

// BeginUndoGroup opens an undo group.
func BeginUndoGroup(ctx context.Context, c Caller) error {
	_, err := c.Call(ctx, ProcUndoBeginGroup, nil, nil)
	return err
}

// EndUndoGroup closes the open undo group under displayName.
func EndUndoGroup(ctx context.Context, c Caller, displayName string) error {
	_, err := c.Call(ctx, ProcUndoEndGroup, map[string]any{"displayName": displayName}, nil)
	return err
}

// CancelUndoGroup discards the open undo group.
func CancelUndoGroup(ctx context.Context, c Caller) error {
	_, err := c.Call(ctx, ProcUndoCancelGroup, nil, nil)
	return err
}

// SelectionCommand names the UI command that shows objects in the project
// explorer bound to channel.
func SelectionCommand(channel int) string {
	return fmt.Sprintf("FindInProjectExplorerSelectionChannel%d", channel)
}

// SelectInProjectExplorer reveals objects in the project explorer.
func SelectInProjectExplorer(ctx context.Context, c Caller, channel int, objects []string) error {
	list := make([]any, 0, len(objects))
	for _, o := range objects {
		list = append(list, o)
	}
	_, err := c.Call(ctx, ProcCommandsExecute, map[string]any{
		"command": SelectionCommand(channel),
		"objects": list,
	}, nil)
	return err
}
