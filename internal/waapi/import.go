package waapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

// ImportItem is one audio file to import.
type ImportItem struct {
	AudioFile          string
	ObjectPath         string
	OriginalsSubFolder string
	// Embed sends the file contents as audioFileBase64 instead of a path
	// the authoring host must be able to read.
	Embed bool
}

// ImportRequest mirrors the ak.wwise.core.audio.import arguments.
type ImportRequest struct {
	Operation              string
	Language               string
	Items                  []ImportItem
	AutoAddToSourceControl bool
}

// Args builds the call arguments, reading embedded files from disk.
func (r ImportRequest) Args() (map[string]any, error) {
	imports := make([]any, 0, len(r.Items))
	for _, item := range r.Items {
		entry := map[string]any{
			"objectPath":         item.ObjectPath,
			"originalsSubFolder": item.OriginalsSubFolder,
		}
		if item.Embed {
			data, err := os.ReadFile(item.AudioFile)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", item.AudioFile, err)
			}
			entry["audioFileBase64"] = filepath.Base(item.AudioFile) + "|" + base64.StdEncoding.EncodeToString(data)
		} else {
			entry["audioFile"] = item.AudioFile
		}
		imports = append(imports, entry)
	}
	return map[string]any{
		"importOperation": r.Operation,
		"default": map[string]any{
			"importLanguage": r.Language,
		},
		"imports":                imports,
		"autoAddToSourceControl": r.AutoAddToSourceControl,
	}, nil
}

// Import issues ak.wwise.core.audio.import once and returns the objects it
// reports.
func Import(ctx context.Context, c Caller, req ImportRequest) ([]Object, error) {
	args, err := req.Args()
	if err != nil {
		return nil, err
	}
	result, err := c.Call(ctx, ProcAudioImport, args, map[string]any{"return": ObjectReturn})
	if err != nil {
		return nil, err
	}
	return ParseObjects(result, "objects"), nil
}
